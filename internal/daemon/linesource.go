package daemon

import (
	"context"
	"io"

	"resident/internal/protocol"
)

type lineResult struct {
	line []byte
	err  error
}

// lineSource reads one line per next call on a helper goroutine so a blocked
// read can be abandoned when the context ends. It never reads ahead: the
// goroutine waits for a request before every ReadLine.
type lineSource struct {
	reader   *protocol.LineReader
	requests chan struct{}
	results  chan lineResult
	done     chan struct{}
	pending  bool
}

func newLineSource(r io.Reader, maxBytes int) *lineSource {
	s := &lineSource{
		reader:   protocol.NewLineReader(r, maxBytes),
		requests: make(chan struct{}, 1),
		results:  make(chan lineResult, 1),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *lineSource) run() {
	for {
		select {
		case <-s.requests:
		case <-s.done:
			return
		}
		line, err := s.reader.ReadLine()
		select {
		case s.results <- lineResult{line: line, err: err}:
		case <-s.done:
			return
		}
	}
}

func (s *lineSource) next(ctx context.Context) ([]byte, error) {
	if !s.pending {
		s.requests <- struct{}{}
		s.pending = true
	}
	select {
	case res := <-s.results:
		s.pending = false
		return res.line, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// stop releases the helper goroutine. One blocked in ReadLine exits once the
// read returns.
func (s *lineSource) stop() {
	close(s.done)
}
