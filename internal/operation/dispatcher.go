package operation

import (
	"context"
	"errors"
	"os"
)

// Dispatcher is the standard Invocable. It never retries an operation and
// never recovers its panics; both are left to the caller.
type Dispatcher struct {
	resolver Resolver
}

func NewDispatcher(resolver Resolver) (*Dispatcher, error) {
	if resolver == nil {
		return nil, errors.New("dispatcher requires a resolver")
	}
	return &Dispatcher{resolver: resolver}, nil
}

// Invoke resolves name, splits arguments and runs the operation. The
// operation writes to whatever os.Stdout and os.Stderr are at call time.
func (d *Dispatcher) Invoke(ctx context.Context, name, arguments, locator string) (int, error) {
	op, err := d.resolver.Resolve(name, locator)
	if err != nil {
		return 0, err
	}
	args, err := SplitArguments(arguments)
	if err != nil {
		return 0, Wrap(ErrInvalidArguments, name, locator, "split arguments", err)
	}
	return op.Run(ctx, Call{
		Name:    name,
		Locator: locator,
		Args:    args,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	})
}
