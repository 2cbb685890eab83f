// Command resident keeps a Go runtime warm for a build orchestrator.
//
// The orchestrator starts resident once, writes one request line per
// operation to its standard input, and reads one response line per request
// from its standard output. Logs go to standard error (and optionally a
// rotated file) so they never mix with responses. See --help for the wire
// format.
package main
