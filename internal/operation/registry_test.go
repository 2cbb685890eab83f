package operation_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"resident/internal/operation"
)

func nopOperation() operation.Operation {
	return operation.Func(func(context.Context, operation.Call) (int, error) { return 0, nil })
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	reg := operation.NewRegistry()
	if err := reg.Register("demo.Tool", "demo", nopOperation()); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := reg.Resolve("demo.Tool", "/ignored.jar"); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if _, ok := reg.Lookup("demo.tool"); ok {
		t.Fatal("lookup should be case sensitive")
	}

	_, err := reg.Resolve("missing.Tool", "/x.jar")
	if !errors.Is(err, operation.ErrOperationNotFound) {
		t.Fatalf("Resolve(missing) error = %v, want ErrOperationNotFound", err)
	}
	for _, fragment := range []string{"missing.Tool", "/x.jar"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error %q does not mention %q", err, fragment)
		}
	}
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	reg := operation.NewRegistry()
	reg.MustRegister("a", "", nopOperation())
	if err := reg.Register("a", "", nopOperation()); !errors.Is(err, operation.ErrDuplicateOperation) {
		t.Fatalf("duplicate error = %v", err)
	}
	if err := reg.Register("  ", "", nopOperation()); err == nil {
		t.Fatal("expected error for blank name")
	}
	if err := reg.Register("b", "", nil); err == nil {
		t.Fatal("expected error for nil operation")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("MustRegister did not panic on duplicate")
		}
	}()
	reg.MustRegister("a", "", nopOperation())
}

func TestRegistryDescribeIsSorted(t *testing.T) {
	reg := operation.NewRegistry()
	reg.MustRegister("zeta", "last", nopOperation())
	reg.MustRegister("alpha", "first", nopOperation())
	if got := reg.Names(); !slices.Equal(got, []string{"alpha", "zeta"}) {
		t.Fatalf("Names = %v", got)
	}
	desc := reg.Describe()
	if len(desc) != 2 || desc[0].Name != "alpha" || desc[0].Description != "first" {
		t.Fatalf("Describe = %+v", desc)
	}
}

type failingResolver struct{ err error }

func (f failingResolver) Resolve(string, string) (operation.Operation, error) { return nil, f.err }

func TestChainResolution(t *testing.T) {
	first := operation.NewRegistry()
	second := operation.NewRegistry()
	second.MustRegister("only.Second", "", nopOperation())

	chain := operation.Chain{first, nil, second}
	if _, err := chain.Resolve("only.Second", ""); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if _, err := chain.Resolve("nowhere", ""); !errors.Is(err, operation.ErrOperationNotFound) {
		t.Fatalf("Resolve(nowhere) error = %v", err)
	}

	loadErr := operation.Wrap(operation.ErrPluginLoad, "x", "bad.so", "open plugin", errors.New("bad ELF"))
	stopped := operation.Chain{failingResolver{err: loadErr}, second}
	if _, err := stopped.Resolve("only.Second", ""); !errors.Is(err, operation.ErrPluginLoad) {
		t.Fatalf("expected load failure to stop the chain, got %v", err)
	}

	if _, err := (operation.Chain{}).Resolve("x", ""); !errors.Is(err, operation.ErrOperationNotFound) {
		t.Fatalf("empty chain error = %v", err)
	}
}

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := operation.Wrap(operation.ErrPluginLoad, "demo.Tool", "/opt/tool.so", "open plugin", base)
	if !errors.Is(err, operation.ErrPluginLoad) || !errors.Is(err, base) {
		t.Fatalf("wrapped error lost its chain: %v", err)
	}
	for _, fragment := range []string{"demo.Tool", "/opt/tool.so", "open plugin", "boom"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %q", fragment, err)
		}
	}
}
