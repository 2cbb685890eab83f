package daemon

import "errors"

var (
	ErrStartup        = errors.New("daemon startup failed")
	ErrAlreadyRunning = errors.New("another resident daemon holds the lock")
	ErrNotServing     = errors.New("daemon is not serving")
)
