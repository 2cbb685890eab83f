package daemon_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"resident/internal/daemon"
	"resident/internal/protocol"
	"resident/internal/testsupport"
)

type optionFunc func(*daemon.Options)

func newDaemon(t *testing.T, in io.Reader, out io.Writer, opts ...optionFunc) *daemon.Daemon {
	t.Helper()
	options := daemon.Options{
		Codec:   protocol.XMLCodec{},
		Invoker: testsupport.NewDispatcher(t),
	}
	for _, opt := range opts {
		opt(&options)
	}
	d, err := daemon.New(in, out, options)
	if err != nil {
		t.Fatalf("daemon.New returned error: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// serveLines runs a daemon over the given input lines until it exits and
// returns the decoded responses along with the raw output.
func serveLines(t *testing.T, lines []string, opts ...optionFunc) ([]protocol.Response, string) {
	t.Helper()
	var out bytes.Buffer
	input := strings.Join(lines, "\n")
	if len(lines) > 0 {
		input += "\n"
	}
	d := newDaemon(t, strings.NewReader(input), &out, opts...)
	if err := d.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
	return decodeResponses(t, protocol.XMLCodec{}, out.String()), out.String()
}

func decodeResponses(t *testing.T, codec protocol.Codec, raw string) []protocol.Response {
	t.Helper()
	var responses []protocol.Response
	for _, line := range strings.Split(strings.TrimSuffix(raw, "\n"), "\n") {
		if line == "" {
			continue
		}
		resp, err := codec.DecodeResponse([]byte(line))
		if err != nil {
			t.Fatalf("decode response %q: %v", line, err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func request(name, args string) string {
	line, _ := protocol.XMLCodec{}.EncodeRequest(protocol.Request{Name: name, Arguments: args, Locator: "/x.jar"})
	return string(line)
}

const exitLine = `<Java Exit="True" />`

func TestServeEchoScenario(t *testing.T) {
	_, raw := serveLines(t, []string{
		`<Java ClassName="echo.Tool" Arguments="hello" Jar="/x.jar" />`,
	})
	want := `<Java ExitCode="0" StandardOutput="hello&#xA;"></Java>` + "\n"
	if raw != want {
		t.Fatalf("output = %q, want %q", raw, want)
	}
}

func TestServeRepliesInOrder(t *testing.T) {
	var lines []string
	for i := range 25 {
		lines = append(lines, request(testsupport.OpExit, fmt.Sprint(i)))
	}
	responses, _ := serveLines(t, lines)
	if len(responses) != len(lines) {
		t.Fatalf("got %d responses for %d requests", len(responses), len(lines))
	}
	for i, resp := range responses {
		if resp.ExitCode != i {
			t.Fatalf("response %d has exit code %d", i, resp.ExitCode)
		}
	}
}

// sequencedIO hands out one input line per Read and records the order of
// reads and writes.
type sequencedIO struct {
	mu     sync.Mutex
	lines  []string
	events []string
}

func (s *sequencedIO) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) == 0 {
		s.events = append(s.events, "eof")
		return 0, io.EOF
	}
	line := s.lines[0] + "\n"
	s.lines = s.lines[1:]
	s.events = append(s.events, "read")
	return copy(p, line), nil
}

func (s *sequencedIO) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "write")
	return len(p), nil
}

func TestServeNeverReadsAheadOfReply(t *testing.T) {
	seq := &sequencedIO{lines: []string{
		request(testsupport.OpEcho, "one"),
		"garbage",
		request(testsupport.OpEcho, "three"),
	}}
	d := newDaemon(t, seq, seq)
	if err := d.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
	want := "read write read write read write eof"
	if got := strings.Join(seq.events, " "); got != want {
		t.Fatalf("events = %q, want %q", got, want)
	}
}

func TestServeDoesNotLeakOutputBetweenRequests(t *testing.T) {
	responses, _ := serveLines(t, []string{
		request(testsupport.OpStderr, "first"),
		request(testsupport.OpEcho, "second"),
	})
	if len(responses) != 2 {
		t.Fatalf("got %d responses", len(responses))
	}
	if responses[0].Stderr != "first" || responses[0].Stdout != "" || responses[0].ExitCode != 1 {
		t.Fatalf("first response = %+v", responses[0])
	}
	if responses[1].Stderr != "" || responses[1].Stdout != "second\n" {
		t.Fatalf("second response = %+v", responses[1])
	}
}

func TestServeRecoversFromMalformedInput(t *testing.T) {
	responses, _ := serveLines(t, []string{
		"this is not structured text",
		"",
		`<Java Arguments="no name" />`,
		request(testsupport.OpEcho, "still serving"),
	})
	if len(responses) != 4 {
		t.Fatalf("got %d responses, want 4", len(responses))
	}
	for i, resp := range responses[:3] {
		if resp.ExitCode != daemon.FailureExitCode || resp.Stderr == "" {
			t.Fatalf("malformed response %d = %+v", i, resp)
		}
		if !strings.Contains(resp.Stderr, "malformed request") {
			t.Fatalf("malformed response %d lacks diagnostic: %q", i, resp.Stderr)
		}
	}
	if responses[3].ExitCode != 0 || responses[3].Stdout != "still serving\n" {
		t.Fatalf("valid response after malformed input = %+v", responses[3])
	}
}

func TestServeOversizedLineIsMalformed(t *testing.T) {
	responses, _ := serveLines(t, []string{
		request(testsupport.OpEcho, strings.Repeat("x", 4096)),
		request(testsupport.OpEcho, "short"),
	}, func(o *daemon.Options) { o.MaxLineBytes = 1024 })
	if len(responses) != 2 {
		t.Fatalf("got %d responses", len(responses))
	}
	if responses[0].ExitCode != daemon.FailureExitCode || !strings.Contains(responses[0].Stderr, "too long") {
		t.Fatalf("oversized response = %+v", responses[0])
	}
	if responses[1].Stdout != "short\n" {
		t.Fatalf("response after oversized line = %+v", responses[1])
	}
}

func TestServeExitRequestStopsWithoutReply(t *testing.T) {
	input := strings.NewReader(strings.Join([]string{
		request(testsupport.OpEcho, "before"),
		exitLine,
		request(testsupport.OpEcho, "after"),
	}, "\n") + "\n")
	var out bytes.Buffer
	d := newDaemon(t, input, &out)
	if err := d.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
	responses := decodeResponses(t, protocol.XMLCodec{}, out.String())
	if len(responses) != 1 || responses[0].Stdout != "before\n" {
		t.Fatalf("responses = %+v", responses)
	}
	if d.State() != daemon.StateExiting {
		t.Fatalf("state = %s, want exiting", d.State())
	}
	if err := d.Serve(context.Background()); !errors.Is(err, daemon.ErrNotServing) {
		t.Fatalf("second Serve error = %v, want ErrNotServing", err)
	}
}

func TestServeEndOfInputIsCleanExit(t *testing.T) {
	var out bytes.Buffer
	d := newDaemon(t, strings.NewReader(""), &out)
	if err := d.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.String())
	}
	if d.State() != daemon.StateExiting {
		t.Fatalf("state = %s", d.State())
	}
}

func TestServeUnknownOperationReportsResolutionFailure(t *testing.T) {
	responses, _ := serveLines(t, []string{request("no.such.Tool", "")})
	if len(responses) != 1 {
		t.Fatalf("got %d responses", len(responses))
	}
	resp := responses[0]
	if resp.ExitCode != daemon.FailureExitCode {
		t.Fatalf("exit code = %d", resp.ExitCode)
	}
	for _, fragment := range []string{"operation not found", "no.such.Tool"} {
		if !strings.Contains(resp.Stderr, fragment) {
			t.Fatalf("stderr %q lacks %q", resp.Stderr, fragment)
		}
	}
}

func TestServeConvertsOperationFaults(t *testing.T) {
	var out bytes.Buffer
	input := strings.Join([]string{
		request(testsupport.OpPanic, ""),
		request(testsupport.OpFail, ""),
		request(testsupport.OpEcho, "alive"),
	}, "\n")
	d := newDaemon(t, strings.NewReader(input), &out)
	if err := d.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
	responses := decodeResponses(t, protocol.XMLCodec{}, out.String())
	if len(responses) != 3 {
		t.Fatalf("got %d responses", len(responses))
	}

	panicked := responses[0]
	if panicked.ExitCode != daemon.FailureExitCode || panicked.Stdout != "partial stdout" {
		t.Fatalf("panic response = %+v", panicked)
	}
	for _, fragment := range []string{"partial stderr", "fake operation panic", "goroutine"} {
		if !strings.Contains(panicked.Stderr, fragment) {
			t.Fatalf("panic stderr lacks %q:\n%s", fragment, panicked.Stderr)
		}
	}

	failed := responses[1]
	if failed.ExitCode != daemon.FailureExitCode {
		t.Fatalf("fail response = %+v", failed)
	}
	if !strings.HasPrefix(failed.Stderr, "about to fail\n") || !strings.Contains(failed.Stderr, testsupport.ErrFake.Error()) {
		t.Fatalf("fail stderr = %q", failed.Stderr)
	}

	if responses[2].Stdout != "alive\n" {
		t.Fatalf("response after faults = %+v", responses[2])
	}
	stats := d.Stats()
	if stats.Served != 1 || stats.Failed != 2 || stats.Malformed != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestServeCapturesStandardLog(t *testing.T) {
	responses, _ := serveLines(t, []string{request(testsupport.OpLog, "via log")})
	if len(responses) != 1 || !strings.HasSuffix(responses[0].Stderr, "via log\n") {
		t.Fatalf("responses = %+v", responses)
	}
}

func TestServeJSONProtocol(t *testing.T) {
	var out bytes.Buffer
	input := `{"operation":"echo.Tool","arguments":"hello","locator":"/x.jar"}` + "\n" + `{"exit":true}` + "\n"
	d := newDaemon(t, strings.NewReader(input), &out, func(o *daemon.Options) { o.Codec = protocol.JSONCodec{} })
	if err := d.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
	if got := out.String(); got != `{"exitCode":0,"stdout":"hello\n"}`+"\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestServeRequestTimeoutCancelsCooperativeOperations(t *testing.T) {
	responses, _ := serveLines(t, []string{
		request(testsupport.OpWait, ""),
		request(testsupport.OpEcho, "next"),
	}, func(o *daemon.Options) { o.RequestTimeout = 50 * time.Millisecond })
	if len(responses) != 2 {
		t.Fatalf("got %d responses", len(responses))
	}
	if responses[0].ExitCode != daemon.FailureExitCode || !strings.Contains(responses[0].Stderr, "deadline exceeded") {
		t.Fatalf("timed out response = %+v", responses[0])
	}
	if responses[1].Stdout != "next\n" {
		t.Fatalf("response after timeout = %+v", responses[1])
	}
}

func TestServeReturnsWhenCancelledDuringRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	var out bytes.Buffer
	d := newDaemon(t, pr, &out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	if d.State() != daemon.StateExiting {
		t.Fatalf("state = %s", d.State())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestServeStopsWhenOutputFails(t *testing.T) {
	d := newDaemon(t, strings.NewReader(request(testsupport.OpEcho, "x")+"\n"), failingWriter{})
	err := d.Serve(context.Background())
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("Serve error = %v, want ErrClosedPipe", err)
	}
	if d.State() != daemon.StateExiting {
		t.Fatalf("state = %s", d.State())
	}
}

func TestServeKeepsLogsOffTheProtocolChannel(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, raw := serveLines(t, []string{
		request(testsupport.OpEcho, "a"),
		"junk",
	}, func(o *daemon.Options) { o.Logger = logger })

	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if !strings.HasPrefix(line, "<Java ") {
			t.Fatalf("non-protocol line on output: %q", line)
		}
	}
	for _, event := range []string{"daemon_ready", "request_served", "request_malformed", "daemon_exiting"} {
		if !strings.Contains(logs.String(), event) {
			t.Fatalf("logs missing %s:\n%s", event, logs.String())
		}
	}
}

func TestNewValidatesOptions(t *testing.T) {
	dispatcher := testsupport.NewDispatcher(t)
	tests := []struct {
		name string
		in   io.Reader
		out  io.Writer
		opts daemon.Options
	}{
		{name: "missing codec", in: strings.NewReader(""), out: io.Discard, opts: daemon.Options{Invoker: dispatcher}},
		{name: "missing invoker", in: strings.NewReader(""), out: io.Discard, opts: daemon.Options{Codec: protocol.XMLCodec{}}},
		{name: "missing input", out: io.Discard, opts: daemon.Options{Codec: protocol.XMLCodec{}, Invoker: dispatcher}},
		{name: "bad capture mode", in: strings.NewReader(""), out: io.Discard, opts: daemon.Options{Codec: protocol.XMLCodec{}, Invoker: dispatcher, CaptureMode: "tee"}},
		{name: "negative timeout", in: strings.NewReader(""), out: io.Discard, opts: daemon.Options{Codec: protocol.XMLCodec{}, Invoker: dispatcher, RequestTimeout: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := daemon.New(tt.in, tt.out, tt.opts); !errors.Is(err, daemon.ErrStartup) {
				t.Fatalf("New error = %v, want ErrStartup", err)
			}
		})
	}
}

func TestInstanceLockIsExclusive(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "run", "resident.lock")
	withLock := func(o *daemon.Options) { o.LockPath = lockPath }

	first := newDaemon(t, strings.NewReader(""), io.Discard, withLock)
	_, err := daemon.New(strings.NewReader(""), io.Discard, daemon.Options{
		Codec:    protocol.XMLCodec{},
		Invoker:  testsupport.NewDispatcher(t),
		LockPath: lockPath,
	})
	if !errors.Is(err, daemon.ErrAlreadyRunning) || !errors.Is(err, daemon.ErrStartup) {
		t.Fatalf("second New error = %v, want ErrAlreadyRunning", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	newDaemon(t, strings.NewReader(""), io.Discard, withLock)
}

func TestStateString(t *testing.T) {
	for state, want := range map[daemon.State]string{
		daemon.StateStarting: "starting",
		daemon.StateServing:  "serving",
		daemon.StateExiting:  "exiting",
		daemon.State(9):      "unknown",
	} {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestSessionID(t *testing.T) {
	given := newDaemon(t, strings.NewReader(""), io.Discard, func(o *daemon.Options) {
		o.SessionID = "run-42"
	})
	if got := given.SessionID(); got != "run-42" {
		t.Fatalf("SessionID = %q, want run-42", got)
	}

	first := newDaemon(t, strings.NewReader(""), io.Discard)
	second := newDaemon(t, strings.NewReader(""), io.Discard)
	if _, err := uuid.Parse(first.SessionID()); err != nil {
		t.Fatalf("generated SessionID %q is not a uuid: %v", first.SessionID(), err)
	}
	if first.SessionID() == second.SessionID() {
		t.Fatalf("two daemons share SessionID %q", first.SessionID())
	}
}
