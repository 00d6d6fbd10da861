package response

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xaitan80/streamhttp/internal/body"
	"github.com/xaitan80/streamhttp/internal/headers"
	"github.com/xaitan80/streamhttp/internal/transport"
)

// StatusCode is a limited set of HTTP status codes we support.
type StatusCode int

const (
	StatusOK                      StatusCode = 200
	StatusBadRequest              StatusCode = 400
	StatusNotFound                StatusCode = 404
	StatusHeaderFieldsTooLarge    StatusCode = 431
	StatusInternalServerError     StatusCode = 500
	StatusNotImplemented          StatusCode = 501
	StatusHTTPVersionNotSupported StatusCode = 505
)

// Reason returns the reason phrase for the status code, or "" if unknown.
func (c StatusCode) Reason() string {
	switch c {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusHeaderFieldsTooLarge:
		return "Request Header Fields Too Large"
	case StatusInternalServerError:
		return "Internal Server Error"
	case StatusNotImplemented:
		return "Not Implemented"
	case StatusHTTPVersionNotSupported:
		return "HTTP Version Not Supported"
	default:
		return ""
	}
}

// Response is what a handler returns: a status, ordered header fields,
// and a body reader. Content-Length is computed and injected at write
// time; setting it on Headers is a programming error.
type Response struct {
	Status  StatusCode
	Headers *headers.Headers
	Body    body.Reader
}

// New builds a response with an in-memory body and empty headers.
func New(status StatusCode, payload []byte) *Response {
	return &Response{
		Status:  status,
		Headers: headers.New(),
		Body:    body.NewMemory(payload),
	}
}

// Write serializes the response over the transport: status line, header
// fields in order, an injected Content-Length, the empty-line terminator,
// then the body streamed until its reader is exhausted.
func (r *Response) Write(ctx context.Context, t *transport.Adapter, version string) error {
	h := r.Headers
	if h == nil {
		h = headers.New()
	}
	if h.Has("Content-Length") {
		panic("response: Content-Length is injected at write time, do not set it")
	}
	b := r.Body
	if b == nil {
		b = body.NewMemory(nil)
	}

	var head bytes.Buffer
	// "VERSION SP CODE SP REASON"; the reason may be empty but its
	// separator may not.
	fmt.Fprintf(&head, "HTTP/%s %d %s\r\n", version, int(r.Status), r.Status.Reason())
	for _, f := range h.Fields() {
		fmt.Fprintf(&head, "%s: %s\r\n", f.Name, f.Value)
	}
	fmt.Fprintf(&head, "Content-Length: %d\r\n\r\n", b.Len())

	if err := t.Write(head.Bytes()); err != nil {
		return err
	}
	for {
		p, err := b.Next(ctx)
		if err != nil {
			return err
		}
		if len(p) == 0 {
			return nil
		}
		if err := t.Write(p); err != nil {
			return err
		}
	}
}
