package request

import (
	"bytes"
	"strings"

	"github.com/xaitan80/streamhttp/internal/buffer"
	"github.com/xaitan80/streamhttp/internal/headers"
	"github.com/xaitan80/streamhttp/internal/protoerr"
)

// MaxHeaderSize caps how many bytes may accumulate before the header
// terminator appears. Beyond this the request is rejected, not buffered.
const MaxHeaderSize = 8 * 1024

type Request struct {
	RequestLine RequestLine
	Headers     *headers.Headers
}

type RequestLine struct {
	HttpVersion   string
	RequestTarget string
	Method        string
}

var terminator = []byte("\r\n\r\n")

// Frame attempts to extract one complete request header from the front of
// buf. It returns (nil, nil) when the terminator has not arrived yet and
// the caller should read more transport data. On success the parsed span,
// terminator included, is consumed from buf. Violations (oversized or
// malformed headers) are *protoerr.Error values.
func Frame(buf *buffer.Buffer) (*Request, error) {
	data := buf.Bytes()
	idx := bytes.Index(data, terminator)
	if idx == -1 {
		if buf.Len() > MaxHeaderSize {
			return nil, protoerr.New(431, "request header exceeds %d bytes", MaxHeaderSize)
		}
		return nil, nil
	}
	span := data[:idx+len(terminator)]
	if len(span) > MaxHeaderSize {
		return nil, protoerr.New(431, "request header exceeds %d bytes", MaxHeaderSize)
	}

	req, err := parse(span)
	if err != nil {
		return nil, err
	}
	buf.ConsumeFront(len(span))
	return req, nil
}

// parse splits a complete header span into the request line and field
// lines. span ends with the empty line that terminated the header.
func parse(span []byte) (*Request, error) {
	consumed, rl, err := parseRequestLine(span)
	if err != nil {
		return nil, err
	}
	if consumed == 0 {
		return nil, protoerr.New(400, "invalid request line: missing line ending")
	}

	h := headers.New()
	rest := span[consumed:]
	total := 0
	for {
		n, done, err := h.Parse(rest[total:])
		if err != nil {
			return nil, protoerr.New(400, "%s", err.Error())
		}
		total += n
		if done {
			break
		}
		if n == 0 {
			return nil, protoerr.New(400, "invalid header line")
		}
	}
	// The empty line must land exactly on the span boundary just consumed.
	if total != len(rest) {
		return nil, protoerr.New(400, "stray bytes inside request header")
	}

	return &Request{RequestLine: rl, Headers: h}, nil
}

// parseRequestLine parses "METHOD SP TARGET SP VERSION CRLF" from the
// beginning of data. It returns the number of bytes consumed including
// the CRLF. If no line ending is present it returns (0, _, nil).
func parseRequestLine(data []byte) (int, RequestLine, error) {
	lf := bytes.IndexByte(data, '\n')
	if lf == -1 {
		return 0, RequestLine{}, nil
	}
	if lf == 0 || data[lf-1] != '\r' {
		return 0, RequestLine{}, protoerr.New(400, "invalid request line ending: expected CRLF")
	}
	line := string(data[:lf-1]) // exclude CR

	// Exactly three single-space separated tokens.
	parts := strings.Split(line, " ")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return 0, RequestLine{}, protoerr.New(400, "invalid request line: want 3 parts")
	}

	method := parts[0]
	for i := 0; i < len(method); i++ {
		c := method[i]
		if c < 'A' || c > 'Z' {
			return 0, RequestLine{}, protoerr.New(400, "invalid method")
		}
	}

	target := parts[1]

	versionPart := parts[2]
	const prefix = "HTTP/"
	if !strings.HasPrefix(versionPart, prefix) {
		return 0, RequestLine{}, protoerr.New(400, "invalid http version format")
	}
	ver := strings.TrimPrefix(versionPart, prefix)
	if ver != "1.1" && ver != "1.0" {
		return 0, RequestLine{}, protoerr.New(505, "unsupported http version %q", ver)
	}

	rl := RequestLine{
		Method:        method,
		RequestTarget: target,
		HttpVersion:   ver,
	}
	// consumed bytes include CRLF; lf is index of LF; consumed = lf+1
	return lf + 1, rl, nil
}

// CloseAfterResponse reports whether the request's protocol version is
// the legacy one-shot form, which gets exactly one response before the
// connection closes.
func (r *Request) CloseAfterResponse() bool {
	return r.RequestLine.HttpVersion == "1.0"
}
