package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaitan80/streamhttp/internal/buffer"
	"github.com/xaitan80/streamhttp/internal/protoerr"
)

// frameChunked feeds data into a fresh buffer numBytesPerRead at a time,
// retrying the framer after every append, the way the connection loop
// does with transport chunks.
func frameChunked(t *testing.T, data string, numBytesPerRead int) (*Request, error) {
	t.Helper()
	buf := buffer.New()
	for pos := 0; pos < len(data); pos += numBytesPerRead {
		end := pos + numBytesPerRead
		if end > len(data) {
			end = len(data)
		}
		buf.Append([]byte(data[pos:end]))
		req, err := Frame(buf)
		if err != nil {
			return nil, err
		}
		if req != nil {
			return req, nil
		}
	}
	return nil, errors.New("incomplete request")
}

func frameAll(t *testing.T, data string) (*Request, error) {
	t.Helper()
	return frameChunked(t, data, len(data))
}

func Test_Good_Request_Line_Chunked(t *testing.T) {
	r, err := frameChunked(t, "GET / HTTP/1.1\r\nHost: localhost:42069\r\nUser-Agent: curl/7.81.0\r\nAccept: */*\r\n\r\n", 3)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "GET", r.RequestLine.Method)
	assert.Equal(t, "/", r.RequestLine.RequestTarget)
	assert.Equal(t, "1.1", r.RequestLine.HttpVersion)
}

func Test_Good_Request_Line_With_Path_Chunked(t *testing.T) {
	r, err := frameChunked(t, "GET /coffee HTTP/1.1\r\nHost: localhost:42069\r\nUser-Agent: curl/7.81.0\r\nAccept: */*\r\n\r\n", 1)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "GET", r.RequestLine.Method)
	assert.Equal(t, "/coffee", r.RequestLine.RequestTarget)
	assert.Equal(t, "1.1", r.RequestLine.HttpVersion)
}

// Chunk-boundary independence: any chunking extracts the same request as
// a single delivery.
func Test_Chunk_Boundary_Independence(t *testing.T) {
	data := "POST /submit HTTP/1.1\r\nHost: localhost:42069\r\nContent-Length: 5\r\n\r\n"
	whole, err := frameAll(t, data)
	require.NoError(t, err)
	for size := 1; size <= len(data); size++ {
		r, err := frameChunked(t, data, size)
		require.NoError(t, err, "chunk size %d", size)
		require.NotNil(t, r, "chunk size %d", size)
		assert.Equal(t, whole.RequestLine, r.RequestLine, "chunk size %d", size)
		assert.Equal(t, whole.Headers.Fields(), r.Headers.Fields(), "chunk size %d", size)
	}
}

func Test_Good_Request_Line(t *testing.T) {
	r, err := frameAll(t, "GET / HTTP/1.1\r\nHost: localhost:42069\r\nUser-Agent: curl/7.81.0\r\nAccept: */*\r\n\r\n")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "GET", r.RequestLine.Method)
	assert.Equal(t, "/", r.RequestLine.RequestTarget)
	assert.Equal(t, "1.1", r.RequestLine.HttpVersion)
}

func Test_Legacy_Version_Closes_After_Response(t *testing.T) {
	r, err := frameAll(t, "GET / HTTP/1.0\r\nHost: localhost:42069\r\n\r\n")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "1.0", r.RequestLine.HttpVersion)
	assert.True(t, r.CloseAfterResponse())

	r, err = frameAll(t, "GET / HTTP/1.1\r\nHost: localhost:42069\r\n\r\n")
	require.NoError(t, err)
	assert.False(t, r.CloseAfterResponse())
}

// Standard Headers
func Test_Standard_Headers(t *testing.T) {
	r, err := frameChunked(t, "GET / HTTP/1.1\r\nHost: localhost:42069\r\nUser-Agent: curl/7.81.0\r\nAccept: */*\r\n\r\n", 3)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "localhost:42069", r.Headers.Get("host"))
	assert.Equal(t, "curl/7.81.0", r.Headers.Get("user-agent"))
	assert.Equal(t, "*/*", r.Headers.Get("accept"))
}

// Empty Headers
func Test_Empty_Headers(t *testing.T) {
	r, err := frameChunked(t, "GET / HTTP/1.1\r\n\r\n", 2)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 0, r.Headers.Len())
}

// Malformed Header
func Test_Malformed_Header(t *testing.T) {
	_, err := frameChunked(t, "GET / HTTP/1.1\r\nHost localhost:42069\r\n\r\n", 3)
	require.Error(t, err)
}

// Duplicate Headers should be joined by Get
func Test_Duplicate_Headers(t *testing.T) {
	r, err := frameChunked(t, "GET / HTTP/1.1\r\nCookie: a=1\r\nCookie: b=2\r\n\r\n", 4)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "a=1,b=2", r.Headers.Get("cookie"))
	assert.Equal(t, 2, r.Headers.Len())
}

// Case Insensitive Headers
func Test_Case_Insensitive_Headers(t *testing.T) {
	r, err := frameChunked(t, "GET / HTTP/1.1\r\nhOsT: localhost\r\nUSER-AGENT: test\r\n\r\n", 5)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "localhost", r.Headers.Get("Host"))
	assert.Equal(t, "test", r.Headers.Get("User-Agent"))
}

// Missing end of headers never completes; the framer keeps reporting
// incomplete without erroring below the size cap.
func Test_Missing_End_Of_Headers(t *testing.T) {
	buf := buffer.New()
	buf.Append([]byte("GET / HTTP/1.1\r\nHost: localhost:42069\r\nUser-Agent: curl\r\n"))
	r, err := Frame(buf)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func Test_Oversized_Header(t *testing.T) {
	buf := buffer.New()
	buf.Append([]byte("GET / HTTP/1.1\r\nX-Filler: "))

	// Stay under the cap: still just incomplete, no error.
	filler := strings.Repeat("a", MaxHeaderSize-buf.Len())
	buf.Append([]byte(filler))
	r, err := Frame(buf)
	require.NoError(t, err)
	assert.Nil(t, r)

	// One byte over the cap without a terminator is fatal.
	buf.Append([]byte("a"))
	_, err = Frame(buf)
	require.Error(t, err)
	var pe *protoerr.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 431, pe.Status)
}

func Test_Frame_Consumes_Only_Its_Span(t *testing.T) {
	buf := buffer.New()
	buf.Append([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\nGET /next HTTP/1.1\r\n"))
	r, err := Frame(buf)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, []byte("GET /next HTTP/1.1\r\n"), buf.Bytes())
}

func Test_Pipelined_Requests_In_One_Buffer(t *testing.T) {
	buf := buffer.New()
	buf.Append([]byte("GET /a HTTP/1.1\r\n\r\nGET /b HTTP/1.1\r\n\r\n"))

	first, err := Frame(buf)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "/a", first.RequestLine.RequestTarget)

	second, err := Frame(buf)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "/b", second.RequestLine.RequestTarget)
	assert.Equal(t, 0, buf.Len())
}

func Test_Invalid_Number_Of_Parts_In_Request_Line(t *testing.T) {
	_, err := frameAll(t, "/coffee HTTP/1.1\r\nHost: localhost:42069\r\n\r\n")
	require.Error(t, err)
}

func Test_Invalid_Method_Request_Line(t *testing.T) {
	// lower-case method should fail
	_, err := frameAll(t, "get / HTTP/1.1\r\nHost: localhost:42069\r\n\r\n")
	require.Error(t, err)
}

func Test_Invalid_Version_Request_Line(t *testing.T) {
	_, err := frameAll(t, "GET / HTTP/2.0\r\nHost: localhost:42069\r\n\r\n")
	require.Error(t, err)
	var pe *protoerr.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 505, pe.Status)

	_, err = frameAll(t, "GET / HTTX/1.1\r\nHost: localhost:42069\r\n\r\n")
	require.Error(t, err)
}

func Test_Extra_Spaces_In_Request_Line(t *testing.T) {
	_, err := frameAll(t, "GET  / HTTP/1.1\r\nHost: x\r\n\r\n")
	require.Error(t, err)
}
