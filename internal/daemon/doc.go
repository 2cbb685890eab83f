// Package daemon implements the resident serve loop.
//
// A Daemon reads one request line at a time from its input, runs the named
// operation inside a capture session, and writes exactly one response line
// before it reads again. It leaves the Serving state when the input ends, an
// exit request arrives, the context is cancelled, or the response channel
// fails. Faults raised while handling a request (malformed lines, missing
// operations, errors and panics from the operation) become responses with
// exit code -1; they never stop the loop.
package daemon
