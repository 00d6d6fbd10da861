package server

import (
	"context"

	"github.com/xaitan80/streamhttp/internal/response"
)

// Hook provides observability callpoints around request dispatch.
// Implementations must be safe for concurrent use; connections dispatch
// independently of one another.
type Hook interface {
	OnRequestStart(ctx context.Context, info RequestInfo) (context.Context, HookToken)
	OnRequestEnd(ctx context.Context, token HookToken, info RequestInfo, status response.StatusCode, err error)
}

// HookToken is an opaque value returned by OnRequestStart and passed back
// to OnRequestEnd. Only meaningful to the Hook that created it.
type HookToken interface{}

// RequestInfo carries request metadata passed to hooks.
type RequestInfo struct {
	Method string
	Target string
	Proto  string
}
