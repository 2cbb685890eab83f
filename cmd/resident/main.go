package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
)

const (
	exitOK      = 0
	exitStartup = 1
	exitFault   = 2
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is the process fault boundary: errors exit 1 with a message, and a
// panic that escapes everything else exits 2 with its stack.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "resident: unrecovered fault: %v\n%s", r, debug.Stack())
			code = exitFault
		}
	}()

	cmd := newRootCommand(streams{in: stdin, out: stdout, err: stderr})
	cmd.SetArgs(normalizeArgs(args))
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(stderr, "resident:", err)
		}
		return exitStartup
	}
	return exitOK
}

// normalizeArgs accepts the single-dash -help spelling older callers use.
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if arg == "-help" {
			arg = "--help"
		}
		out[i] = arg
	}
	return out
}
