package testsupport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"testing"

	"resident/internal/operation"
)

// Names of the fake operations registered by NewRegistry.
const (
	OpEcho   = "echo.Tool"   // prints its arguments and a newline to os.Stdout, exits 0
	OpStderr = "stderr.Tool" // prints its arguments to os.Stderr, exits 1
	OpExit   = "exit.Tool"   // exits with the code given as its only argument
	OpFail   = "fail.Tool"   // returns ErrFake instead of an exit code
	OpPanic  = "panic.Tool"  // panics after writing to both streams
	OpWait   = "wait.Tool"   // blocks until the request context ends
	OpLog    = "log.Tool"    // writes its arguments through the standard log package
)

// ErrFake is returned by the fail operation.
var ErrFake = errors.New("fake operation failure")

// NewRegistry returns a registry preloaded with the fake operations. The
// operations write through os.Stdout and os.Stderr directly, like third-party
// tools that know nothing about the daemon.
func NewRegistry(t testing.TB) *operation.Registry {
	t.Helper()

	reg := operation.NewRegistry()
	register := func(name string, fn operation.Func) {
		if err := reg.Register(name, "test operation", fn); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	register(OpEcho, func(_ context.Context, call operation.Call) (int, error) {
		fmt.Println(strings.Join(call.Args, " "))
		return 0, nil
	})
	register(OpStderr, func(_ context.Context, call operation.Call) (int, error) {
		fmt.Fprint(os.Stderr, strings.Join(call.Args, " "))
		return 1, nil
	})
	register(OpExit, func(_ context.Context, call operation.Call) (int, error) {
		if len(call.Args) != 1 {
			return 0, fmt.Errorf("exit.Tool wants one argument, got %d", len(call.Args))
		}
		return strconv.Atoi(call.Args[0])
	})
	register(OpFail, func(context.Context, operation.Call) (int, error) {
		fmt.Fprintln(os.Stderr, "about to fail")
		return 0, ErrFake
	})
	register(OpPanic, func(context.Context, operation.Call) (int, error) {
		fmt.Print("partial stdout")
		fmt.Fprint(os.Stderr, "partial stderr")
		panic("fake operation panic")
	})
	register(OpWait, func(ctx context.Context, _ operation.Call) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	register(OpLog, func(_ context.Context, call operation.Call) (int, error) {
		log.Print(strings.Join(call.Args, " "))
		return 0, nil
	})
	return reg
}

// NewDispatcher wraps NewRegistry in a Dispatcher.
func NewDispatcher(t testing.TB) *operation.Dispatcher {
	t.Helper()

	d, err := operation.NewDispatcher(NewRegistry(t))
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d
}
