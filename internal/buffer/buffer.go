package buffer

// minCapacity is the floor for the backing region; growth doubles from here.
const minCapacity = 32

// Buffer accumulates raw bytes read from a transport until a complete
// protocol unit can be extracted from the front. The occupied region is
// always the unconsumed data, left-aligned at offset 0.
type Buffer struct {
	data []byte
	n    int
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{data: make([]byte, minCapacity)}
}

// Append copies p after the occupied region, doubling the backing region
// until it fits. Amortized O(1) per byte over the buffer's lifetime.
func (b *Buffer) Append(p []byte) {
	need := b.n + len(p)
	if need > len(b.data) {
		capacity := len(b.data)
		if capacity < minCapacity {
			capacity = minCapacity
		}
		for capacity < need {
			capacity *= 2
		}
		grown := make([]byte, capacity)
		copy(grown, b.data[:b.n])
		b.data = grown
	}
	copy(b.data[b.n:], p)
	b.n = need
}

// ConsumeFront drops the first n bytes, shifting the remainder to offset 0.
// n must not exceed Len.
func (b *Buffer) ConsumeFront(n int) {
	if n < 0 || n > b.n {
		panic("buffer: consume beyond occupied length")
	}
	copy(b.data, b.data[n:b.n])
	b.n -= n
}

// Bytes returns the occupied region. The slice aliases the backing region
// and is invalidated by the next Append or ConsumeFront.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Len returns the occupied length.
func (b *Buffer) Len() int {
	return b.n
}
