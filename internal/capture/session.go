package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Mode selects how much of the process output a session intercepts.
type Mode string

const (
	ModeStream     Mode = "stream"
	ModeDescriptor Mode = "descriptor"
)

// DrainTimeout bounds how long End waits for the capture pipes to reach EOF
// after the write ends are closed. A child process that inherited a pipe and
// outlives the operation would otherwise block End forever.
const DrainTimeout = time.Second

// ParseMode maps a configuration value to a Mode. Empty selects ModeStream.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeStream:
		return ModeStream, nil
	case ModeDescriptor:
		return ModeDescriptor, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, value)
	}
}

var active atomic.Bool

// Active reports whether a session is currently open.
func Active() bool {
	return active.Load()
}

// Session owns one redirection of the process output streams.
type Session struct {
	mode Mode

	prevStdout *os.File
	prevStderr *os.File
	prevLog    io.Writer
	restoreFDs func() error

	outR, outW *os.File
	errR, errW *os.File
	outBuf     bytes.Buffer
	errBuf     bytes.Buffer
	drains     sync.WaitGroup

	ended  bool
	stdout string
	stderr string
	endErr error
}

// Begin opens a session. The caller must call End exactly once it is done,
// normally through defer.
func Begin(mode Mode) (*Session, error) {
	if mode == "" {
		mode = ModeStream
	}
	if mode != ModeStream && mode != ModeDescriptor {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if !active.CompareAndSwap(false, true) {
		return nil, ErrSessionActive
	}
	s := &Session{mode: mode}
	if err := s.open(); err != nil {
		s.closePipes()
		active.Store(false)
		return nil, err
	}
	return s, nil
}

func (s *Session) open() error {
	var err error
	if s.outR, s.outW, err = os.Pipe(); err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	if s.errR, s.errW, err = os.Pipe(); err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}
	if s.mode == ModeDescriptor {
		restore, err := redirectDescriptors(s.outW, s.errW)
		if err != nil {
			return err
		}
		s.restoreFDs = restore
	}

	s.drain(s.outR, &s.outBuf)
	s.drain(s.errR, &s.errBuf)

	s.prevStdout, s.prevStderr, s.prevLog = os.Stdout, os.Stderr, log.Writer()
	os.Stdout, os.Stderr = s.outW, s.errW
	log.SetOutput(s.errW)
	return nil
}

func (s *Session) drain(r *os.File, buf *bytes.Buffer) {
	s.drains.Add(1)
	go func() {
		defer s.drains.Done()
		_, _ = io.Copy(buf, r)
	}()
}

// End restores the previous streams and returns everything captured. Calling
// End again returns the same result without side effects.
func (s *Session) End() (stdout, stderr string, err error) {
	if s.ended {
		return s.stdout, s.stderr, s.endErr
	}
	s.ended = true
	defer active.Store(false)

	var errs []error
	log.SetOutput(s.prevLog)
	os.Stdout, os.Stderr = s.prevStdout, s.prevStderr
	if s.restoreFDs != nil {
		if err := s.restoreFDs(); err != nil {
			errs = append(errs, fmt.Errorf("restore descriptors: %w", err))
		}
	}
	if err := s.outW.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stdout pipe: %w", err))
	}
	if err := s.errW.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stderr pipe: %w", err))
	}

	deadline := time.Now().Add(DrainTimeout)
	_ = s.outR.SetReadDeadline(deadline)
	_ = s.errR.SetReadDeadline(deadline)
	s.drains.Wait()
	_ = s.outR.Close()
	_ = s.errR.Close()

	s.stdout, s.stderr = s.outBuf.String(), s.errBuf.String()
	s.outBuf.Reset()
	s.errBuf.Reset()
	s.endErr = errors.Join(errs...)
	return s.stdout, s.stderr, s.endErr
}

func (s *Session) closePipes() {
	for _, f := range []*os.File{s.outR, s.outW, s.errR, s.errW} {
		if f != nil {
			_ = f.Close()
		}
	}
}

// Result is the outcome of one captured call.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

// Run calls fn inside a session. The streams are restored before Run returns
// no matter how fn ends; a panic in fn is recovered and reported as a
// *PanicError in Result.Err alongside whatever fn wrote before it.
func Run(mode Mode, fn func() (int, error)) (res Result) {
	session, err := Begin(mode)
	if err != nil {
		return Result{Err: fmt.Errorf("begin capture: %w", err)}
	}
	defer func() {
		if r := recover(); r != nil {
			res.ExitCode = 0
			res.Err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		stdout, stderr, endErr := session.End()
		res.Stdout, res.Stderr = stdout, stderr
		if endErr != nil && res.Err == nil {
			res.Err = fmt.Errorf("end capture: %w", endErr)
		}
	}()
	res.ExitCode, res.Err = fn()
	return res
}
