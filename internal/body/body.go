package body

import (
	"context"
	"strconv"

	"github.com/xaitan80/streamhttp/internal/buffer"
	"github.com/xaitan80/streamhttp/internal/protoerr"
	"github.com/xaitan80/streamhttp/internal/request"
	"github.com/xaitan80/streamhttp/internal/transport"
)

// Reader yields a message body in chunks. Next returns a zero-length
// chunk exactly once, at end of body; callers stop pulling after that.
// Len is the declared length in bytes.
type Reader interface {
	Len() int
	Next(ctx context.Context) ([]byte, error)
}

// Memory wraps a body that is fully in memory. The first pull returns
// the whole payload; every later pull returns zero-length.
type Memory struct {
	data      []byte
	exhausted bool
}

func NewMemory(p []byte) *Memory {
	return &Memory{data: p}
}

func (m *Memory) Len() int {
	return len(m.data)
}

func (m *Memory) Next(ctx context.Context) ([]byte, error) {
	if m.exhausted {
		return nil, nil
	}
	m.exhausted = true
	return m.data, nil
}

// Remaining reads a body of known length off the connection: buffered
// leftover bytes first, then at most one transport read per pull. The
// connection's accumulation buffer is shared with the framer, so bytes
// past the body boundary stay put for the next request.
type Remaining struct {
	t         *transport.Adapter
	buf       *buffer.Buffer
	length    int
	remaining int
}

func NewRemaining(t *transport.Adapter, buf *buffer.Buffer, length int) *Remaining {
	return &Remaining{t: t, buf: buf, length: length, remaining: length}
}

func (r *Remaining) Len() int {
	return r.length
}

func (r *Remaining) Next(ctx context.Context) ([]byte, error) {
	if r.remaining == 0 {
		return nil, nil
	}
	if r.buf.Len() == 0 {
		p, err := r.t.Read(ctx)
		if err != nil {
			return nil, err
		}
		if len(p) == 0 {
			return nil, protoerr.New(400, "unexpected end of stream reading body")
		}
		r.buf.Append(p)
	}
	n := r.buf.Len()
	if n > r.remaining {
		n = r.remaining
	}
	out := make([]byte, n)
	copy(out, r.buf.Bytes()[:n])
	r.buf.ConsumeFront(n)
	r.remaining -= n
	return out, nil
}

// ForRequest selects the body reader for a framed request, in order: a
// no-body method with a declared non-zero length is a violation; a
// no-body method otherwise gets an immediately exhausted bounded reader;
// a Content-Length gets a bounded reader; chunked transfer coding and
// read-to-end-of-stream are unimplemented.
func ForRequest(req *request.Request, buf *buffer.Buffer, t *transport.Adapter) (Reader, error) {
	declared := req.Headers.Get("Content-Length")

	if methodForbidsBody(req.RequestLine.Method) {
		if declared != "" {
			n, err := parseContentLength(declared)
			if err != nil {
				return nil, err
			}
			if n != 0 {
				return nil, protoerr.New(400, "body not allowed for method %s", req.RequestLine.Method)
			}
		}
		return NewRemaining(t, buf, 0), nil
	}

	if declared != "" {
		n, err := parseContentLength(declared)
		if err != nil {
			return nil, err
		}
		return NewRemaining(t, buf, n), nil
	}

	if te := req.Headers.Get("Transfer-Encoding"); te != "" {
		return nil, protoerr.New(501, "transfer-encoding %q not implemented", te)
	}

	return nil, protoerr.New(501, "reading body to end of stream not implemented")
}

func methodForbidsBody(method string) bool {
	switch method {
	case "GET", "HEAD", "TRACE":
		return true
	}
	return false
}

func parseContentLength(s string) (int, error) {
	if len(s) == 0 {
		return 0, protoerr.New(400, "invalid Content-Length %q", s)
	}
	// Digits only; Atoi alone would admit a sign.
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, protoerr.New(400, "invalid Content-Length %q", s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Out of range for int; a length that large is not a real body.
		return 0, protoerr.New(400, "invalid Content-Length %q", s)
	}
	return n, nil
}
