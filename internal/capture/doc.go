// Package capture redirects the process-wide standard output and standard
// error streams into private buffers for the duration of one unit of work.
//
// A Session is acquired with Begin and released with End; Run pairs the two
// with defer so the previous streams come back on every exit path, panics
// included. Sessions rely on the caller for sequencing: they are not safe to
// overlap, and Begin reports ErrSessionActive if a caller tries.
//
// Two modes exist. ModeStream swaps the os.Stdout and os.Stderr variables and
// the standard log package output, which covers Go code that writes through
// those handles. ModeDescriptor (linux only) additionally points file
// descriptors 1 and 2 at the capture pipes, so writes from cgo, from code that
// cached the original *os.File, and from inherited child processes land in
// the buffers too.
package capture
