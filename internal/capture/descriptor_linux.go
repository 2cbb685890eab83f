//go:build linux

package capture

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	stdoutFD = 1
	stderrFD = 2
)

// redirectDescriptors points fds 1 and 2 at the given files and returns a
// function that puts the saved originals back.
func redirectDescriptors(stdout, stderr *os.File) (func() error, error) {
	savedOut, err := unix.FcntlInt(stdoutFD, unix.F_DUPFD_CLOEXEC, 3)
	if err != nil {
		return nil, fmt.Errorf("save stdout descriptor: %w", err)
	}
	savedErr, err := unix.FcntlInt(stderrFD, unix.F_DUPFD_CLOEXEC, 3)
	if err != nil {
		_ = unix.Close(savedOut)
		return nil, fmt.Errorf("save stderr descriptor: %w", err)
	}

	restore := func() error {
		errOut := unix.Dup3(savedOut, stdoutFD, 0)
		errErr := unix.Dup3(savedErr, stderrFD, 0)
		_ = unix.Close(savedOut)
		_ = unix.Close(savedErr)
		return errors.Join(errOut, errErr)
	}

	if err := unix.Dup3(int(stdout.Fd()), stdoutFD, 0); err != nil {
		_ = restore()
		return nil, fmt.Errorf("redirect stdout descriptor: %w", err)
	}
	if err := unix.Dup3(int(stderr.Fd()), stderrFD, 0); err != nil {
		_ = restore()
		return nil, fmt.Errorf("redirect stderr descriptor: %w", err)
	}
	return restore, nil
}
