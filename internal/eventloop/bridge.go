package eventloop

import (
	"errors"
	"io"
	"sync"

	"github.com/panjf2000/gnet/v2"

	"github.com/xaitan80/streamhttp/internal/transport"
)

// bridge implements transport.Source over a gnet connection. Demand is a
// flag flipped by Resume/Pause; inbound bytes move to the adapter only
// while it is set, otherwise they wait in gnet's inbound buffer. Resume
// wakes the connection so bytes that arrived while paused get pumped.
type bridge struct {
	conn    gnet.Conn
	adapter *transport.Adapter

	mu     sync.Mutex
	demand bool
}

func newBridge(c gnet.Conn) *bridge {
	return &bridge{conn: c}
}

// bind wires the adapter; called once in OnOpen before any traffic.
func (b *bridge) bind(t *transport.Adapter) {
	b.adapter = t
}

// pump runs on the event loop for each readable event. Without demand it
// leaves the bytes buffered, which is what backpressures the peer.
func (b *bridge) pump(c gnet.Conn) {
	b.mu.Lock()
	want := b.demand
	b.mu.Unlock()
	if !want {
		return
	}
	data, err := c.Next(-1)
	if err != nil || len(data) == 0 {
		return
	}
	p := make([]byte, len(data))
	copy(p, data)
	b.adapter.Deliver(p)
}

// closed forwards the engine's close notification to the adapter.
func (b *bridge) closed(err error) {
	if err == nil || errors.Is(err, io.EOF) {
		b.adapter.End()
		return
	}
	b.adapter.Fail(err)
}

func (b *bridge) Resume() {
	b.mu.Lock()
	b.demand = true
	b.mu.Unlock()
	// Re-deliver a readable event in case bytes arrived while paused.
	_ = b.conn.Wake(nil)
}

func (b *bridge) Pause() {
	b.mu.Lock()
	b.demand = false
	b.mu.Unlock()
}

// Write queues p on the event loop and waits for the completion callback,
// giving the sequential loop its write acknowledgment.
func (b *bridge) Write(p []byte) error {
	q := make([]byte, len(p))
	copy(q, p)
	done := make(chan error, 1)
	err := b.conn.AsyncWrite(q, func(c gnet.Conn, err error) error {
		done <- err
		return nil
	})
	if err != nil {
		return err
	}
	return <-done
}

func (b *bridge) Close() error {
	return b.conn.Close()
}
