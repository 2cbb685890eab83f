package operation_test

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"

	"resident/internal/operation"
)

func TestDispatcherInvokesWithSplitArguments(t *testing.T) {
	reg := operation.NewRegistry()
	var got operation.Call
	var gotID string
	reg.MustRegister("record", "", operation.Func(func(ctx context.Context, call operation.Call) (int, error) {
		got = call
		gotID, _ = operation.RequestIDFromContext(ctx)
		return 42, nil
	}))
	d, err := operation.NewDispatcher(reg)
	if err != nil {
		t.Fatalf("NewDispatcher returned error: %v", err)
	}

	ctx := operation.WithRequestID(context.Background(), "req-1")
	code, err := d.Invoke(ctx, "record", `compile "a b" c`, "/tools/x.so")
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if code != 42 {
		t.Fatalf("code = %d, want 42", code)
	}
	if got.Name != "record" || got.Locator != "/tools/x.so" {
		t.Fatalf("call = %+v", got)
	}
	if !slices.Equal(got.Args, []string{"compile", "a b", "c"}) {
		t.Fatalf("args = %q", got.Args)
	}
	if got.Stdout != os.Stdout || got.Stderr != os.Stderr {
		t.Fatal("call streams should be the current process streams")
	}
	if gotID != "req-1" {
		t.Fatalf("request id = %q", gotID)
	}
}

func TestDispatcherErrors(t *testing.T) {
	reg := operation.NewRegistry()
	calls := 0
	boom := errors.New("boom")
	reg.MustRegister("fails", "", operation.Func(func(context.Context, operation.Call) (int, error) {
		calls++
		return 0, boom
	}))
	d, _ := operation.NewDispatcher(reg)

	if _, err := d.Invoke(context.Background(), "missing", "", ""); !errors.Is(err, operation.ErrOperationNotFound) {
		t.Fatalf("missing error = %v", err)
	}
	if _, err := d.Invoke(context.Background(), "fails", `"unterminated`, ""); !errors.Is(err, operation.ErrInvalidArguments) {
		t.Fatalf("bad args error = %v", err)
	}
	if calls != 0 {
		t.Fatal("operation ran despite invalid arguments")
	}
	if _, err := d.Invoke(context.Background(), "fails", "", ""); !errors.Is(err, boom) {
		t.Fatalf("operation error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("operation ran %d times, want exactly once", calls)
	}
}

func TestDispatcherDoesNotRecoverPanics(t *testing.T) {
	reg := operation.NewRegistry()
	reg.MustRegister("panics", "", operation.Func(func(context.Context, operation.Call) (int, error) {
		panic("kaboom")
	}))
	d, _ := operation.NewDispatcher(reg)
	defer func() {
		if r := recover(); r != "kaboom" {
			t.Fatalf("recovered %v, want kaboom", r)
		}
	}()
	_, _ = d.Invoke(context.Background(), "panics", "", "")
}

func TestNewDispatcherRequiresResolver(t *testing.T) {
	if _, err := operation.NewDispatcher(nil); err == nil {
		t.Fatal("expected error for nil resolver")
	}
}
