//go:build !linux

package capture

import (
	"fmt"
	"os"
	"runtime"
)

func redirectDescriptors(_, _ *os.File) (func() error, error) {
	return nil, fmt.Errorf("%w: descriptor mode on %s", ErrModeUnsupported, runtime.GOOS)
}
