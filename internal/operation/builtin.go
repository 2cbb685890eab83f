package operation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Builtin operation names.
const (
	BuiltinEcho    = "echo"
	BuiltinVersion = "version"
	BuiltinSleep   = "sleep"
)

// RegisterBuiltins adds the operations every resident binary carries.
func RegisterBuiltins(reg *Registry, version string) error {
	builtins := []struct {
		name        string
		description string
		op          Operation
	}{
		{BuiltinEcho, "Print the arguments separated by spaces", Func(echo)},
		{BuiltinVersion, "Print the daemon version", Func(func(_ context.Context, call Call) (int, error) {
			_, err := fmt.Fprintf(call.Stdout, "resident %s\n", version)
			return 0, err
		})},
		{BuiltinSleep, "Wait for a duration (e.g. 250ms), honoring request timeouts", Func(sleep)},
	}
	for _, b := range builtins {
		if err := reg.Register(b.name, b.description, b.op); err != nil {
			return err
		}
	}
	return nil
}

func echo(_ context.Context, call Call) (int, error) {
	_, err := fmt.Fprintln(call.Stdout, strings.Join(call.Args, " "))
	return 0, err
}

func sleep(ctx context.Context, call Call) (int, error) {
	if len(call.Args) != 1 {
		fmt.Fprintln(call.Stderr, "usage: sleep <duration>")
		return 2, nil
	}
	d, err := time.ParseDuration(call.Args[0])
	if err != nil {
		fmt.Fprintf(call.Stderr, "sleep: %v\n", err)
		return 2, nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return 0, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
