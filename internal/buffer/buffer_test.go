package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Append_Then_ConsumeFront(t *testing.T) {
	b := New()
	b.Append([]byte("hello world"))
	require.Equal(t, 11, b.Len())

	b.ConsumeFront(6)
	assert.Equal(t, 5, b.Len())
	assert.Equal(t, []byte("world"), b.Bytes())
}

func Test_Consume_Keeps_Remainder_Left_Aligned(t *testing.T) {
	b := New()
	b.Append([]byte("abcdef"))
	b.ConsumeFront(2)
	b.Append([]byte("gh"))
	assert.Equal(t, []byte("cdefgh"), b.Bytes())
}

func Test_Grows_Past_Floor(t *testing.T) {
	b := New()
	chunk := bytes.Repeat([]byte("x"), 100)
	for i := 0; i < 10; i++ {
		b.Append(chunk)
	}
	require.Equal(t, 1000, b.Len())
	assert.Equal(t, bytes.Repeat([]byte("x"), 1000), b.Bytes())
}

func Test_Chunked_Appends_Equal_Single_Append(t *testing.T) {
	data := []byte("GET / HTTP/1.1\r\nHost: localhost:42069\r\n\r\n")

	single := New()
	single.Append(data)

	chunked := New()
	for i := 0; i < len(data); i += 3 {
		end := i + 3
		if end > len(data) {
			end = len(data)
		}
		chunked.Append(data[i:end])
	}

	assert.Equal(t, single.Bytes(), chunked.Bytes())
}

func Test_Consume_All_Empties_Buffer(t *testing.T) {
	b := New()
	b.Append([]byte("abc"))
	b.ConsumeFront(3)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Bytes())
}

func Test_Consume_Beyond_Length_Panics(t *testing.T) {
	b := New()
	b.Append([]byte("abc"))
	assert.Panics(t, func() { b.ConsumeFront(4) })
}
