package protocol

import (
	"fmt"
	"strings"
)

// Supported wire formats.
const (
	FormatXML  = "xml"
	FormatJSON = "json"
)

// Request is one decoded input line. Values are copied, never shared, so a
// Request cannot change after Decode returns.
type Request struct {
	Name      string // operation to invoke
	Arguments string // single argument string, interpreted by the operation
	Locator   string // where the operation lives (plugin path, classpath)
	Exit      bool   // ends the session without a reply
}

// Response is one encoded output line.
type Response struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Codec converts between protocol lines and structured messages. Lines passed
// to Decode and returned by Encode never include the line terminator.
type Codec interface {
	Decode(line []byte) (Request, error)
	Encode(resp Response) ([]byte, error)
	EncodeRequest(req Request) ([]byte, error)
	DecodeResponse(line []byte) (Response, error)
	Format() string
}

// ForFormat returns the codec registered for the named format.
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatXML, "":
		return XMLCodec{}, nil
	case FormatJSON:
		return JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func validate(req Request) error {
	if req.Exit {
		return nil
	}
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: operation name is required unless exit is set", ErrMalformedRequest)
	}
	return nil
}
