package server

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xaitan80/streamhttp/internal/body"
	"github.com/xaitan80/streamhttp/internal/request"
	"github.com/xaitan80/streamhttp/internal/response"
	"github.com/xaitan80/streamhttp/internal/transport"
)

// Handler is the opaque collaborator behind request routing. It receives
// the parsed request plus a capability to pull the body, and returns the
// response to send. A returned error (or nil response) is surfaced to the
// client as an internal server error.
type Handler func(ctx context.Context, req *request.Request, bodyReader body.Reader) (*response.Response, error)

type Server struct {
	ln     net.Listener
	closed atomic.Bool
	h      Handler
	log    zerolog.Logger
	hook   Hook
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's base logger; connections derive child
// loggers from it.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithHook installs an observability hook around request dispatch.
func WithHook(h Hook) Option {
	return func(s *Server) { s.hook = h }
}

// Serve starts a TCP listener on the given port and begins accepting
// connections in a background goroutine.
func Serve(port int, h Handler, opts ...Option) (*Server, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	s := &Server{ln: ln, h: h, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	go s.listen()
	return s, nil
}

// Addr returns the listener's address, useful when serving on port 0.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Close stops the server and closes the underlying listener.
func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	s.closed.Store(true)
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

// listen accepts connections until the server is closed, handling each in a goroutine.
func (s *Server) listen() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return
			}
			// Ignore transient errors and continue accepting
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}
		go s.handle(conn)
	}
}

// handle bridges the accepted connection into the push transport and
// runs the request/response loop until it exits.
func (s *Server) handle(conn net.Conn) {
	logger := s.log.With().
		Str("conn_id", uuid.NewString()).
		Str("remote", conn.RemoteAddr().String()).
		Logger()

	src := transport.NewNetSource(conn)
	t := transport.NewAdapter(src)
	src.Start(t)

	ServeConn(context.Background(), t, s.h, logger, s.hook)
}
