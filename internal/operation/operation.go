package operation

import (
	"context"
	"io"
)

// Invocable runs a named operation to completion and reports its exit code.
// An error means the operation could not produce a code at all (it could not
// be found, its arguments could not be parsed, or it failed outright).
type Invocable interface {
	Invoke(ctx context.Context, name, arguments, locator string) (int, error)
}

// Call carries one invocation's inputs to an Operation.
type Call struct {
	Name    string
	Locator string
	Args    []string
	Stdout  io.Writer
	Stderr  io.Writer
}

// Operation is a unit of work that runs in the daemon's process.
type Operation interface {
	Run(ctx context.Context, call Call) (int, error)
}

// Func adapts a plain function to Operation.
type Func func(ctx context.Context, call Call) (int, error)

func (f Func) Run(ctx context.Context, call Call) (int, error) {
	return f(ctx, call)
}

// Resolver finds the Operation a request names. Implementations return an
// error wrapping ErrOperationNotFound when they do not know the name.
type Resolver interface {
	Resolve(name, locator string) (Operation, error)
}
