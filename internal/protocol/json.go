package protocol

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

type jsonRequest struct {
	Operation string `json:"operation,omitempty"`
	Locator   string `json:"locator,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Exit      bool   `json:"exit,omitempty"`
}

type jsonResponse struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

// JSONCodec speaks one JSON object per line.
type JSONCodec struct{}

func (JSONCodec) Format() string { return FormatJSON }

func (JSONCodec) Decode(line []byte) (Request, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return Request{}, fmt.Errorf("%w: empty line", ErrMalformedRequest)
	}
	if trimmed[0] != '{' {
		return Request{}, fmt.Errorf("%w: expected a JSON object", ErrMalformedRequest)
	}
	var doc jsonRequest
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	req := Request{
		Name:      doc.Operation,
		Arguments: doc.Arguments,
		Locator:   doc.Locator,
		Exit:      doc.Exit,
	}
	if err := validate(req); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (JSONCodec) Encode(resp Response) ([]byte, error) {
	return json.Marshal(jsonResponse{
		ExitCode: resp.ExitCode,
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
	})
}

func (JSONCodec) EncodeRequest(req Request) ([]byte, error) {
	if req.Exit {
		return json.Marshal(jsonRequest{Exit: true})
	}
	return json.Marshal(jsonRequest{
		Operation: req.Name,
		Locator:   req.Locator,
		Arguments: req.Arguments,
	})
}

func (JSONCodec) DecodeResponse(line []byte) (Response, error) {
	var doc jsonResponse
	if err := json.Unmarshal(bytes.TrimSpace(line), &doc); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return Response{ExitCode: doc.ExitCode, Stdout: doc.Stdout, Stderr: doc.Stderr}, nil
}
