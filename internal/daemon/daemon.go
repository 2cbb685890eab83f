package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"resident/internal/capture"
	"resident/internal/logging"
	"resident/internal/operation"
	"resident/internal/protocol"
)

// Options configures a Daemon. Codec and Invoker are required.
type Options struct {
	Codec          protocol.Codec
	Invoker        operation.Invocable
	Logger         *slog.Logger
	CaptureMode    capture.Mode
	MaxLineBytes   int
	RequestTimeout time.Duration
	ReclaimMemory  bool
	LockPath       string

	// SessionID identifies this run. When empty New generates one and tags
	// the logger with it; when set the logger is expected to carry it already.
	SessionID string
}

// Stats counts requests handled since the daemon started.
type Stats struct {
	Served    uint64
	Failed    uint64
	Malformed uint64
}

// Daemon serves requests from one input stream to one output stream.
type Daemon struct {
	in             io.Reader
	out            *bufio.Writer
	codec          protocol.Codec
	invoker        operation.Invocable
	logger         *slog.Logger
	captureMode    capture.Mode
	maxLineBytes   int
	requestTimeout time.Duration
	reclaimMemory  bool
	sessionID      string

	lock      *instanceLock
	closeOnce sync.Once

	state     atomic.Int32
	served    atomic.Uint64
	failed    atomic.Uint64
	malformed atomic.Uint64
}

// New validates opts, takes the instance lock when one is configured, and
// returns a Daemon in the Serving state. Every failure wraps ErrStartup.
func New(in io.Reader, out io.Writer, opts Options) (*Daemon, error) {
	if in == nil || out == nil {
		return nil, fmt.Errorf("%w: input and output streams are required", ErrStartup)
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("%w: codec is required", ErrStartup)
	}
	if opts.Invoker == nil {
		return nil, fmt.Errorf("%w: invoker is required", ErrStartup)
	}
	mode, err := capture.ParseMode(string(opts.CaptureMode))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStartup, err)
	}
	if opts.RequestTimeout < 0 {
		return nil, fmt.Errorf("%w: request timeout must be >= 0", ErrStartup)
	}
	maxLine := opts.MaxLineBytes
	if maxLine <= 0 {
		maxLine = protocol.DefaultMaxLineBytes
	}

	logger := logging.NewComponentLogger(opts.Logger, "daemon")
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
		logger = logger.With(logging.String(logging.FieldSessionID, sessionID))
	}

	d := &Daemon{
		in:             in,
		out:            bufio.NewWriter(out),
		codec:          opts.Codec,
		invoker:        opts.Invoker,
		logger:         logger,
		captureMode:    mode,
		maxLineBytes:   maxLine,
		requestTimeout: opts.RequestTimeout,
		reclaimMemory:  opts.ReclaimMemory,
		sessionID:      sessionID,
	}
	d.state.Store(int32(StateStarting))

	if opts.LockPath != "" {
		lock, err := acquireLock(opts.LockPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStartup, err)
		}
		d.lock = lock
	}

	d.setState(StateServing)
	logger.Info("daemon ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("protocol", opts.Codec.Format()),
		logging.String("capture_mode", string(mode)),
		logging.Duration("request_timeout", opts.RequestTimeout),
		logging.Bool("reclaim_memory", opts.ReclaimMemory),
	)
	return d, nil
}

// State reports the current lifecycle state.
func (d *Daemon) State() State {
	return State(d.state.Load())
}

// SessionID returns the identifier attached to every log line of this run.
func (d *Daemon) SessionID() string {
	return d.sessionID
}

// Stats returns a snapshot of the request counters.
func (d *Daemon) Stats() Stats {
	return Stats{
		Served:    d.served.Load(),
		Failed:    d.failed.Load(),
		Malformed: d.malformed.Load(),
	}
}

func (d *Daemon) setState(s State) {
	d.state.Store(int32(s))
}

// Serve runs the loop until the daemon exits. End of input, an exit request
// and context cancellation are clean exits and return nil. A failed read or
// write on the streams returns the error, since no further reply could be
// delivered.
func (d *Daemon) Serve(ctx context.Context) error {
	if d.State() != StateServing {
		return ErrNotServing
	}
	lines := newLineSource(d.in, d.maxLineBytes)
	defer lines.stop()

	for {
		line, err := lines.next(ctx)
		var result outcome
		var req protocol.Request
		requestID := uuid.NewString()
		started := time.Now()

		switch {
		case err == nil:
			req, err = d.codec.Decode(line)
			switch {
			case err != nil:
				result = malformedOutcome{err: err}
			case req.Exit:
				d.exit("exit requested")
				return nil
			default:
				result = d.dispatch(ctx, req, requestID)
			}
		case errors.Is(err, io.EOF):
			d.exit("end of input")
			return nil
		case ctx.Err() != nil:
			d.exit("context cancelled")
			return nil
		case errors.Is(err, protocol.ErrLineTooLong):
			result = malformedOutcome{err: fmt.Errorf("%w: %w", protocol.ErrMalformedRequest, err)}
		default:
			d.exit("input failed")
			return fmt.Errorf("read request: %w", err)
		}

		resp := toResponse(result)
		if err := d.write(resp); err != nil {
			d.exit("output failed")
			return fmt.Errorf("write response: %w", err)
		}
		d.record(result, req, requestID, resp, time.Since(started))
		d.reclaim()
	}
}

func (d *Daemon) dispatch(ctx context.Context, req protocol.Request, requestID string) outcome {
	reqCtx := operation.WithRequestID(ctx, requestID)
	if d.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(reqCtx, d.requestTimeout)
		defer cancel()
	}

	res := capture.Run(d.captureMode, func() (int, error) {
		return d.invoker.Invoke(reqCtx, req.Name, req.Arguments, req.Locator)
	})
	if res.Err != nil {
		return failedOutcome{stdout: res.Stdout, stderr: res.Stderr, err: res.Err}
	}
	return okOutcome{response: protocol.Response{
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}}
}

func (d *Daemon) write(resp protocol.Response) error {
	line, err := d.codec.Encode(resp)
	if err != nil {
		line, err = d.codec.Encode(protocol.Response{
			ExitCode: FailureExitCode,
			Stderr:   fmt.Sprintf("encode response: %v", err),
		})
		if err != nil {
			return fmt.Errorf("encode fallback response: %w", err)
		}
	}
	if _, err := d.out.Write(line); err != nil {
		return err
	}
	if err := d.out.WriteByte('\n'); err != nil {
		return err
	}
	return d.out.Flush()
}

// record updates counters and logs the request. It runs only after the
// capture session has ended so daemon logs are never captured.
func (d *Daemon) record(result outcome, req protocol.Request, requestID string, resp protocol.Response, elapsed time.Duration) {
	attrs := []logging.Attr{
		logging.String(logging.FieldRequestID, requestID),
		logging.String(logging.FieldOperation, req.Name),
		logging.String(logging.FieldLocator, req.Locator),
		logging.Int(logging.FieldExitCode, resp.ExitCode),
		logging.Duration("elapsed", elapsed),
	}
	switch o := result.(type) {
	case okOutcome:
		d.served.Add(1)
		d.logger.Debug("request served", logging.Args(append(attrs,
			logging.String(logging.FieldEventType, "request_served"),
			logging.Int("stdout_bytes", len(resp.Stdout)),
			logging.Int("stderr_bytes", len(resp.Stderr)),
		)...)...)
	case malformedOutcome:
		d.malformed.Add(1)
		logging.WarnWithContext(d.logger, "malformed request", "request_malformed", append(attrs,
			logging.Error(o.err),
			logging.String(logging.FieldErrorHint, "check the caller's protocol format setting"),
			logging.String(logging.FieldImpact, "request answered with exit code -1"),
		)...)
	case failedOutcome:
		d.failed.Add(1)
		logging.WarnWithContext(d.logger, "operation failed", "request_failed", append(attrs,
			logging.Error(o.err),
			logging.String(logging.FieldErrorHint, "inspect the standard error returned to the caller"),
			logging.String(logging.FieldImpact, "request answered with exit code -1"),
		)...)
	}
}

func (d *Daemon) reclaim() {
	if d.reclaimMemory {
		debug.FreeOSMemory()
	}
}

func (d *Daemon) exit(reason string) {
	if err := d.out.Flush(); err != nil {
		d.logger.Debug("flush on exit failed", logging.Error(err))
	}
	d.setState(StateExiting)
	stats := d.Stats()
	d.logger.Info("daemon exiting",
		logging.String(logging.FieldEventType, "daemon_exiting"),
		logging.String("reason", reason),
		logging.Uint64("served", stats.Served),
		logging.Uint64("failed", stats.Failed),
		logging.Uint64("malformed", stats.Malformed),
	)
}

// Close moves the daemon to Exiting and releases the instance lock. It is
// safe to call more than once and after Serve has returned.
func (d *Daemon) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.setState(StateExiting)
		if releaseErr := d.lock.release(); releaseErr != nil {
			err = fmt.Errorf("release lock: %w", releaseErr)
		}
	})
	return err
}
