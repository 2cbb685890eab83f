package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMaxLineBytes bounds a single request line.
const DefaultMaxLineBytes = 16 << 20

// LineReader splits a byte stream into protocol lines. Input is treated as
// UTF-8 unless it starts with a byte order mark, in which case the marked
// encoding (UTF-8, UTF-16LE or UTF-16BE) is decoded and the mark dropped.
// Lines end at LF; a preceding CR is removed.
type LineReader struct {
	r   *bufio.Reader
	max int
}

func NewLineReader(r io.Reader, maxBytes int) *LineReader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLineBytes
	}
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	return &LineReader{r: bufio.NewReaderSize(decoded, 64<<10), max: maxBytes}
}

// ReadLine returns the next line without its terminator. A final line with no
// terminator is still returned; the following call reports io.EOF. Lines
// longer than the limit are consumed in full and reported as ErrLineTooLong so
// the caller can keep reading.
func (l *LineReader) ReadLine() ([]byte, error) {
	var (
		line    []byte
		tooLong bool
		sawAny  bool
	)
	for {
		chunk, err := l.r.ReadSlice('\n')
		if len(chunk) > 0 {
			sawAny = true
		}
		if !tooLong {
			if len(line)+len(chunk) > l.max+2 {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) && sawAny {
				break
			}
			return nil, err
		}
		break
	}
	if tooLong {
		return nil, ErrLineTooLong
	}
	line = bytes.TrimSuffix(line, []byte{'\n'})
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(line) > l.max {
		return nil, ErrLineTooLong
	}
	return line, nil
}
