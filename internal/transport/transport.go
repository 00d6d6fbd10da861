package transport

import (
	"context"
	"sync"
)

// Source is the transport boundary: a duplex byte stream that delivers
// inbound data by pushing it at the Adapter and honors a demand signal.
// Resume asks the source to deliver; Pause asks it to stop until the next
// Resume. Write blocks until the transport has accepted the bytes. Close
// tears the stream down and unblocks any in-flight delivery.
type Source interface {
	Resume()
	Pause()
	Write(p []byte) error
	Close() error
}

type chunk struct {
	data []byte
	err  error
	eof  bool
}

// Adapter converts a Source's push deliveries into a sequential pull
// contract. At most one Read may be outstanding at a time; the pending
// read is a single-slot rendezvous, not a queue. A transport error is
// sticky: every later Read and Write fails with it. A recorded
// end-of-stream makes every later Read return a zero-length result.
type Adapter struct {
	src Source

	mu     sync.Mutex
	waiter chan chunk
	slot   []byte
	err    error
	eof    bool

	closeOnce sync.Once
}

// NewAdapter wraps src. The caller wires src's delivery events to
// Deliver, End and Fail.
func NewAdapter(src Source) *Adapter {
	return &Adapter{src: src}
}

// Read returns the next chunk of inbound bytes. A zero-length result with
// a nil error is clean end-of-stream. Precedence: sticky error, buffered
// undelivered chunk, recorded end-of-stream, then waiting for delivery.
func (a *Adapter) Read(ctx context.Context) ([]byte, error) {
	a.mu.Lock()
	if a.waiter != nil {
		a.mu.Unlock()
		panic("transport: Read while another read is outstanding")
	}
	if a.err != nil {
		err := a.err
		a.mu.Unlock()
		return nil, err
	}
	if len(a.slot) > 0 {
		p := a.slot
		a.slot = nil
		a.mu.Unlock()
		return p, nil
	}
	if a.eof {
		a.mu.Unlock()
		return nil, nil
	}
	ch := make(chan chunk, 1)
	a.waiter = ch
	a.mu.Unlock()

	a.src.Resume()

	select {
	case c := <-ch:
		return c.data, c.err
	case <-ctx.Done():
		a.mu.Lock()
		if a.waiter == ch {
			a.waiter = nil
			a.mu.Unlock()
			a.src.Pause()
			return nil, ctx.Err()
		}
		a.mu.Unlock()
		// A delivery raced the cancellation; take it rather than lose it.
		c := <-ch
		return c.data, c.err
	}
}

// Write sends p over the source, failing fast on a sticky error. A write
// error becomes the connection's sticky error.
func (a *Adapter) Write(p []byte) error {
	a.mu.Lock()
	err := a.err
	a.mu.Unlock()
	if err != nil {
		return err
	}
	if err := a.src.Write(p); err != nil {
		a.Fail(err)
		return err
	}
	return nil
}

// Deliver hands one inbound chunk to the adapter. The adapter takes
// ownership of p. Delivery immediately pauses the source; it stays paused
// until the next Read.
func (a *Adapter) Deliver(p []byte) {
	if len(p) == 0 {
		return
	}
	a.mu.Lock()
	if a.err != nil || a.eof {
		a.mu.Unlock()
		return
	}
	w := a.waiter
	if w != nil {
		a.waiter = nil
	} else {
		// No read in flight; hold the bytes until one arrives. The source
		// may slip in a chunk between Resume taking effect and Pause
		// landing, so this appends rather than asserting an empty slot.
		a.slot = append(a.slot, p...)
	}
	a.mu.Unlock()

	a.src.Pause()
	if w != nil {
		w <- chunk{data: p}
	}
}

// End records clean end-of-stream. Any pending read completes with a
// zero-length result, as do all future reads.
func (a *Adapter) End() {
	a.mu.Lock()
	if a.err != nil || a.eof {
		a.mu.Unlock()
		return
	}
	a.eof = true
	w := a.waiter
	a.waiter = nil
	a.mu.Unlock()

	if w != nil {
		w <- chunk{eof: true}
	}
}

// Fail records a sticky transport error. Any pending read fails with it,
// as do all future reads and writes.
func (a *Adapter) Fail(err error) {
	a.mu.Lock()
	if a.err != nil {
		a.mu.Unlock()
		return
	}
	a.err = err
	w := a.waiter
	a.waiter = nil
	a.mu.Unlock()

	if w != nil {
		w <- chunk{err: err}
	}
}

// Close closes the underlying source exactly once. Safe to call from any
// exit path.
func (a *Adapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		err = a.src.Close()
	})
	return err
}
