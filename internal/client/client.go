package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"resident/internal/protocol"
)

var (
	ErrClosed       = errors.New("client closed")
	ErrBroken       = errors.New("client stream out of sync after an abandoned call")
	ErrDaemonExited = errors.New("daemon exited before replying")
)

type lineResult struct {
	line []byte
	err  error
}

// Client sends requests to a daemon and reads its replies.
type Client struct {
	codec  protocol.Codec
	w      io.Writer
	reader *protocol.LineReader

	mu     sync.Mutex
	closed bool
	broken bool
}

// New wraps the daemon's input (w) and output (r). A nil codec selects XML.
func New(w io.Writer, r io.Reader, codec protocol.Codec) *Client {
	if codec == nil {
		codec = protocol.XMLCodec{}
	}
	return &Client{
		codec:  codec,
		w:      w,
		reader: protocol.NewLineReader(r, protocol.DefaultMaxLineBytes),
	}
}

// Call sends req and waits for its reply. Calls from several goroutines are
// serialized. If ctx ends first the reply is abandoned and the client becomes
// unusable, since the next line on the stream would belong to this call.
func (c *Client) Call(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	if req.Exit {
		return protocol.Response{}, errors.New("use Close to end the session")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return protocol.Response{}, ErrClosed
	}
	if c.broken {
		return protocol.Response{}, ErrBroken
	}

	line, err := c.codec.EncodeRequest(req)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("encode request: %w", err)
	}
	if err := c.writeLine(line); err != nil {
		return protocol.Response{}, fmt.Errorf("send request: %w", err)
	}

	results := make(chan lineResult, 1)
	go func() {
		reply, err := c.reader.ReadLine()
		results <- lineResult{line: reply, err: err}
	}()

	select {
	case res := <-results:
		if errors.Is(res.err, io.EOF) {
			c.broken = true
			return protocol.Response{}, ErrDaemonExited
		}
		if res.err != nil {
			c.broken = true
			return protocol.Response{}, fmt.Errorf("read response: %w", res.err)
		}
		resp, err := c.codec.DecodeResponse(res.line)
		if err != nil {
			return protocol.Response{}, fmt.Errorf("decode response: %w", err)
		}
		return resp, nil
	case <-ctx.Done():
		c.broken = true
		return protocol.Response{}, ctx.Err()
	}
}

// Close sends the exit request once and closes the writer when it is an
// io.Closer. Later calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if line, err := c.codec.EncodeRequest(protocol.Request{Exit: true}); err != nil {
		errs = append(errs, fmt.Errorf("encode exit: %w", err))
	} else if err := c.writeLine(line); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		errs = append(errs, fmt.Errorf("send exit: %w", err))
	}
	if closer, ok := c.w.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close input: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) writeLine(line []byte) error {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	_, err := c.w.Write(buf)
	return err
}
