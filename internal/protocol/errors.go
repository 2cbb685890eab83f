package protocol

import "errors"

var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrLineTooLong      = errors.New("request line too long")
	ErrUnknownFormat    = errors.New("unknown protocol format")
)
