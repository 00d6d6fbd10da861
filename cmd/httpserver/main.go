package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/xaitan80/streamhttp/internal/body"
	"github.com/xaitan80/streamhttp/internal/eventloop"
	"github.com/xaitan80/streamhttp/internal/request"
	"github.com/xaitan80/streamhttp/internal/response"
	"github.com/xaitan80/streamhttp/internal/server"
)

var html400 = []byte("<html>\n  <head>\n    <title>400 Bad Request</title>\n  </head>\n  <body>\n    <h1>Bad Request</h1>\n    <p>Your request honestly kinda sucked.</p>\n  </body>\n</html>\n")
var html500 = []byte("<html>\n  <head>\n    <title>500 Internal Server Error</title>\n  </head>\n  <body>\n    <h1>Internal Server Error</h1>\n    <p>Okay, you know what? This one is on me.</p>\n  </body>\n</html>\n")

func handler(ctx context.Context, r *request.Request, bodyReader body.Reader) (*response.Response, error) {
	switch {
	case r.RequestLine.RequestTarget == "/":
		resp := response.New(response.StatusOK, []byte("hello world.\n"))
		resp.Headers.Set("Content-Type", "text/plain")
		return resp, nil

	case r.RequestLine.RequestTarget == "/yourproblem":
		resp := response.New(response.StatusBadRequest, html400)
		resp.Headers.Set("Content-Type", "text/html")
		return resp, nil

	case r.RequestLine.RequestTarget == "/myproblem":
		resp := response.New(response.StatusInternalServerError, html500)
		resp.Headers.Set("Content-Type", "text/html")
		return resp, nil

	case r.RequestLine.RequestTarget == "/echo":
		// Pull the request body through the reader and send it back.
		var payload []byte
		for {
			p, err := bodyReader.Next(ctx)
			if err != nil {
				return nil, err
			}
			if len(p) == 0 {
				break
			}
			payload = append(payload, p...)
		}
		resp := response.New(response.StatusOK, payload)
		if ct := r.Headers.Get("Content-Type"); ct != "" {
			resp.Headers.Set("Content-Type", ct)
		}
		return resp, nil

	case r.RequestLine.RequestTarget == "/gzipped":
		payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 64)
		resp := response.New(response.StatusOK, payload)
		resp.Headers.Set("Content-Type", "text/plain")
		if strings.Contains(r.Headers.Get("Accept-Encoding"), "gzip") {
			var zipped bytes.Buffer
			zw := gzip.NewWriter(&zipped)
			if _, err := zw.Write(payload); err != nil {
				return nil, err
			}
			if err := zw.Close(); err != nil {
				return nil, err
			}
			resp.Body = body.NewMemory(zipped.Bytes())
			resp.Headers.Set("Content-Encoding", "gzip")
		}
		return resp, nil

	default:
		return response.New(response.StatusNotFound, []byte("not found\n")), nil
	}
}

func main() {
	port := flag.Int("port", 42069, "listen port")
	engine := flag.String("engine", "net", "transport engine: net or gnet")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	hook, err := server.NewOtelHook(otel.GetMeterProvider())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build otel hook")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch *engine {
	case "net":
		srv, err := server.Serve(*port, handler, server.WithLogger(logger), server.WithHook(hook))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
		defer srv.Close()
		logger.Info().Int("port", *port).Msg("server started")
		<-sigChan

	case "gnet":
		srv := eventloop.New(fmt.Sprintf(":%d", *port), handler,
			eventloop.WithLogger(logger),
			eventloop.WithHook(hook),
			eventloop.WithMulticore(true),
		)
		errChan := make(chan error, 1)
		go func() { errChan <- srv.Run() }()
		select {
		case err := <-errChan:
			logger.Fatal().Err(err).Msg("engine stopped")
		case <-sigChan:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(ctx); err != nil {
				logger.Warn().Err(err).Msg("engine shutdown failed")
			}
		}

	default:
		logger.Fatal().Str("engine", *engine).Msg("unknown engine")
	}

	logger.Info().Msg("server stopped")
}
