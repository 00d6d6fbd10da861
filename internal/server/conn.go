package server

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/xaitan80/streamhttp/internal/body"
	"github.com/xaitan80/streamhttp/internal/buffer"
	"github.com/xaitan80/streamhttp/internal/protoerr"
	"github.com/xaitan80/streamhttp/internal/request"
	"github.com/xaitan80/streamhttp/internal/response"
	"github.com/xaitan80/streamhttp/internal/transport"
)

// ServeConn runs the request/response loop for one connection: frame a
// request off the buffer, build its body reader, dispatch, write the
// response, drain the request body, repeat. The transport is closed
// exactly once on every exit path. Requests on the same connection are
// strictly sequential; only distinct connections run concurrently.
func ServeConn(ctx context.Context, t *transport.Adapter, h Handler, logger zerolog.Logger, hook Hook) {
	defer func() {
		_ = t.Close()
	}()

	buf := buffer.New()
	for {
		req, err := awaitRequest(ctx, t, buf)
		if err != nil {
			respondViolation(ctx, t, err, logger)
			return
		}
		if req == nil {
			// Clean end of stream between requests.
			logger.Debug().Msg("connection closed by peer")
			return
		}

		bodyReader, err := body.ForRequest(req, buf, t)
		if err != nil {
			respondViolation(ctx, t, err, logger)
			return
		}

		resp := dispatch(ctx, h, req, bodyReader, hook, logger)

		version := req.RequestLine.HttpVersion
		if err := resp.Write(ctx, t, version); err != nil {
			logger.Warn().Err(err).Msg("failed to write response")
			return
		}

		// Drain whatever the handler left unread so the stream is
		// positioned at the next frame boundary.
		if err := drain(ctx, bodyReader); err != nil {
			logger.Warn().Err(err).Msg("failed to drain request body")
			return
		}

		if req.CloseAfterResponse() {
			logger.Debug().Msg("closing legacy one-shot connection")
			return
		}
	}
}

// awaitRequest reads transport chunks into buf until the framer extracts
// a request. (nil, nil) means the peer closed cleanly between requests.
func awaitRequest(ctx context.Context, t *transport.Adapter, buf *buffer.Buffer) (*request.Request, error) {
	for {
		req, err := request.Frame(buf)
		if err != nil {
			return nil, err
		}
		if req != nil {
			return req, nil
		}

		p, err := t.Read(ctx)
		if err != nil {
			return nil, err
		}
		if len(p) == 0 {
			if buf.Len() == 0 {
				return nil, nil
			}
			return nil, protoerr.New(400, "unexpected end of stream reading header")
		}
		buf.Append(p)
	}
}

// dispatch invokes the handler between hook callpoints. Handler faults
// are translated into an internal-error response.
func dispatch(ctx context.Context, h Handler, req *request.Request, bodyReader body.Reader, hook Hook, logger zerolog.Logger) *response.Response {
	info := RequestInfo{
		Method: req.RequestLine.Method,
		Target: req.RequestLine.RequestTarget,
		Proto:  "HTTP/" + req.RequestLine.HttpVersion,
	}
	var token HookToken
	if hook != nil {
		ctx, token = hook.OnRequestStart(ctx, info)
	}

	resp, err := h(ctx, req, bodyReader)
	if err != nil || resp == nil {
		logger.Error().Err(err).Str("target", info.Target).Msg("handler failed")
		resp = response.New(response.StatusInternalServerError, []byte("internal server error\n"))
	}

	if hook != nil {
		hook.OnRequestEnd(ctx, token, info, resp.Status, err)
	}
	logger.Info().
		Str("method", info.Method).
		Str("target", info.Target).
		Int("status", int(resp.Status)).
		Msg("request handled")
	return resp
}

// drain pulls the request body until exhaustion.
func drain(ctx context.Context, r body.Reader) error {
	for {
		p, err := r.Next(ctx)
		if err != nil {
			return err
		}
		if len(p) == 0 {
			return nil
		}
	}
}

// respondViolation sends a best-effort error response for a protocol
// violation. Transport faults get no response; the connection is being
// abandoned either way, so a failed send is swallowed.
func respondViolation(ctx context.Context, t *transport.Adapter, err error, logger zerolog.Logger) {
	var pe *protoerr.Error
	if !errors.As(err, &pe) {
		logger.Warn().Err(err).Msg("transport fault")
		return
	}
	logger.Warn().Int("status", pe.Status).Str("reason", pe.Message).Msg("protocol violation")

	resp := response.New(response.StatusCode(pe.Status), []byte(pe.Message+"\n"))
	if werr := resp.Write(ctx, t, "1.1"); werr != nil {
		logger.Debug().Err(werr).Msg("failed to send error response")
	}
}
