package transport

import (
	"io"
	"net"
)

// NetSource turns a net.Conn into a push Source: a pump goroutine reads
// the connection and delivers chunks to the adapter, but only while
// demand is signalled. Pausing stops the pump before its next read, so a
// fast sender backs up into the kernel buffer instead of this process.
type NetSource struct {
	conn   net.Conn
	demand chan struct{}
	done   chan struct{}
}

func NewNetSource(conn net.Conn) *NetSource {
	return &NetSource{
		conn:   conn,
		demand: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the pump goroutine feeding a. It exits on end-of-stream,
// on a read error, or when the source is closed.
func (s *NetSource) Start(a *Adapter) {
	go func() {
		buf := make([]byte, 4096)
		for {
			select {
			case <-s.demand:
			case <-s.done:
				// Closing must resolve a pending read, never leave it dangling.
				a.Fail(net.ErrClosed)
				return
			}
			n, err := s.conn.Read(buf)
			if n > 0 {
				p := make([]byte, n)
				copy(p, buf[:n])
				a.Deliver(p)
			}
			if err == io.EOF {
				a.End()
				return
			}
			if err != nil {
				a.Fail(err)
				return
			}
		}
	}()
}

// Resume grants the pump one round of delivery.
func (s *NetSource) Resume() {
	select {
	case s.demand <- struct{}{}:
	default:
	}
}

// Pause revokes an unconsumed demand token, if any. A read already in
// flight still completes; its chunk parks in the adapter's slot.
func (s *NetSource) Pause() {
	select {
	case <-s.demand:
	default:
	}
}

func (s *NetSource) Write(p []byte) error {
	_, err := s.conn.Write(p)
	return err
}

// Close stops the pump and closes the connection, which also unblocks a
// read in flight.
func (s *NetSource) Close() error {
	close(s.done)
	return s.conn.Close()
}
