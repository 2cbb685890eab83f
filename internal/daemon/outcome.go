package daemon

import (
	"errors"
	"fmt"
	"strings"

	"resident/internal/capture"
	"resident/internal/protocol"
)

// FailureExitCode is reported for requests that produced no exit code of
// their own.
const FailureExitCode = -1

// outcome is the result of handling one request. The concrete types below are
// the only implementations.
type outcome interface {
	outcome()
}

type okOutcome struct {
	response protocol.Response
}

type malformedOutcome struct {
	err error
}

type failedOutcome struct {
	stdout string
	stderr string
	err    error
}

func (okOutcome) outcome()        {}
func (malformedOutcome) outcome() {}
func (failedOutcome) outcome()    {}

func toResponse(o outcome) protocol.Response {
	switch o := o.(type) {
	case okOutcome:
		return o.response
	case malformedOutcome:
		return protocol.Response{ExitCode: FailureExitCode, Stderr: o.err.Error()}
	case failedOutcome:
		return protocol.Response{
			ExitCode: FailureExitCode,
			Stdout:   o.stdout,
			Stderr:   appendTrace(o.stderr, o.err),
		}
	default:
		return protocol.Response{
			ExitCode: FailureExitCode,
			Stderr:   fmt.Sprintf("internal error: unhandled outcome %T", o),
		}
	}
}

// failureTrace renders err for the caller. Panics carry their goroutine
// stack; plain errors carry their full wrap chain.
func failureTrace(err error) string {
	var panicErr *capture.PanicError
	if errors.As(err, &panicErr) {
		return panicErr.Trace()
	}
	return "operation failed: " + err.Error()
}

func appendTrace(stderr string, err error) string {
	trace := failureTrace(err)
	if stderr == "" {
		return trace
	}
	if !strings.HasSuffix(stderr, "\n") {
		stderr += "\n"
	}
	return stderr + trace
}
