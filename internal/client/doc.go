// Package client drives a resident daemon from the orchestrator side.
//
// A Client owns the write end of the daemon's input and the read end of its
// output. It keeps at most one request outstanding, matching the daemon's
// strictly sequential serve loop. Process starts a daemon binary and wraps a
// Client around its standard streams.
package client
