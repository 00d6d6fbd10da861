// Package eventloop fronts the connection loop with the gnet event
// engine. Where the net-based server pumps each socket from its own
// goroutine, gnet pushes readable events at us from a small set of event
// loops; the bridge below turns those events into transport.Source
// deliveries, with gnet's inbound buffer absorbing bytes whenever the
// adapter has not signalled demand.
package eventloop

import (
	"context"

	"github.com/google/uuid"
	"github.com/panjf2000/gnet/v2"
	"github.com/rs/zerolog"

	"github.com/xaitan80/streamhttp/internal/server"
	"github.com/xaitan80/streamhttp/internal/transport"
)

// Server implements gnet.EventHandler; each accepted connection gets a
// bridge, an adapter and its own connection-loop goroutine.
type Server struct {
	gnet.BuiltinEventEngine

	addr      string
	h         server.Handler
	log       zerolog.Logger
	hook      server.Hook
	multicore bool
	eng       gnet.Engine
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func WithHook(h server.Hook) Option {
	return func(s *Server) { s.hook = h }
}

func WithMulticore(on bool) Option {
	return func(s *Server) { s.multicore = on }
}

// New builds an event-loop server listening on addr ("host:port").
func New(addr string, h server.Handler, opts ...Option) *Server {
	s := &Server{addr: addr, h: h, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run starts the engine and blocks until it stops.
func (s *Server) Run() error {
	return gnet.Run(s, "tcp://"+s.addr,
		gnet.WithMulticore(s.multicore),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
	)
}

// Stop shuts the engine down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.eng.Stop(ctx)
}

func (s *Server) OnBoot(eng gnet.Engine) gnet.Action {
	s.eng = eng
	s.log.Info().Str("addr", s.addr).Msg("event engine started")
	return gnet.None
}

func (s *Server) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	br := newBridge(c)
	t := transport.NewAdapter(br)
	br.bind(t)
	c.SetContext(br)

	logger := s.log.With().
		Str("conn_id", uuid.NewString()).
		Str("remote", c.RemoteAddr().String()).
		Logger()
	go server.ServeConn(context.Background(), t, s.h, logger, s.hook)

	return nil, gnet.None
}

func (s *Server) OnTraffic(c gnet.Conn) gnet.Action {
	br, ok := c.Context().(*bridge)
	if !ok {
		return gnet.Close
	}
	br.pump(c)
	return gnet.None
}

func (s *Server) OnClose(c gnet.Conn, err error) gnet.Action {
	if br, ok := c.Context().(*bridge); ok {
		br.closed(err)
	}
	return gnet.None
}
