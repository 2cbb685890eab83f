package protocol

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

type xmlRequest struct {
	XMLName   xml.Name `xml:"Java"`
	ClassName string   `xml:"ClassName,attr,omitempty"`
	Jar       string   `xml:"Jar,attr,omitempty"`
	Arguments string   `xml:"Arguments,attr,omitempty"`
	Exit      string   `xml:"Exit,attr,omitempty"`
}

// xmlAttributes is the decode side for both directions; the element name is
// not checked.
type xmlAttributes struct {
	XMLName        xml.Name
	ClassName      string `xml:"ClassName,attr"`
	Jar            string `xml:"Jar,attr"`
	Arguments      string `xml:"Arguments,attr"`
	Exit           string `xml:"Exit,attr"`
	ExitCode       int    `xml:"ExitCode,attr"`
	StandardOutput string `xml:"StandardOutput,attr"`
	StandardError  string `xml:"StandardError,attr"`
}

type xmlResponse struct {
	XMLName        xml.Name `xml:"Java"`
	ExitCode       int      `xml:"ExitCode,attr"`
	StandardOutput string   `xml:"StandardOutput,attr,omitempty"`
	StandardError  string   `xml:"StandardError,attr,omitempty"`
}

// XMLCodec speaks the single-element attribute format. Attribute values are
// escaped with character references, including tab, CR and LF, so encoded
// lines never contain a raw terminator. Characters XML cannot carry at all
// (most C0 controls) are replaced with U+FFFD.
type XMLCodec struct{}

func (XMLCodec) Format() string { return FormatXML }

func (XMLCodec) Decode(line []byte) (Request, error) {
	var doc xmlAttributes
	if err := decodeSingleElement(line, &doc); err != nil {
		return Request{}, err
	}
	req := Request{
		Name:      doc.ClassName,
		Arguments: doc.Arguments,
		Locator:   doc.Jar,
		Exit:      doc.Exit != "",
	}
	if err := validate(req); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (XMLCodec) Encode(resp Response) ([]byte, error) {
	return xml.Marshal(xmlResponse{
		ExitCode:       resp.ExitCode,
		StandardOutput: resp.Stdout,
		StandardError:  resp.Stderr,
	})
}

func (XMLCodec) EncodeRequest(req Request) ([]byte, error) {
	if req.Exit {
		return xml.Marshal(xmlRequest{Exit: "True"})
	}
	return xml.Marshal(xmlRequest{
		ClassName: req.Name,
		Jar:       req.Locator,
		Arguments: req.Arguments,
	})
}

func (XMLCodec) DecodeResponse(line []byte) (Response, error) {
	var doc xmlAttributes
	if err := decodeSingleElement(line, &doc); err != nil {
		return Response{}, err
	}
	return Response{
		ExitCode: doc.ExitCode,
		Stdout:   doc.StandardOutput,
		Stderr:   doc.StandardError,
	}, nil
}

// decodeSingleElement requires the line to be one well-formed document with a
// single root element. Prolog and trailing whitespace, comments and
// processing instructions are tolerated; anything else after the root is not.
func decodeSingleElement(line []byte, v any) error {
	if len(bytes.TrimSpace(line)) == 0 {
		return fmt.Errorf("%w: empty line", ErrMalformedRequest)
	}
	dec := xml.NewDecoder(bytes.NewReader(line))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: no root element", ErrMalformedRequest)
		}
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return fmt.Errorf("%w: content after root element", ErrMalformedRequest)
			}
		case xml.Comment, xml.ProcInst:
		default:
			return fmt.Errorf("%w: content after root element", ErrMalformedRequest)
		}
	}
}
