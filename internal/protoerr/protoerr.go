package protoerr

import "fmt"

// Error is a protocol violation: the peer sent something the protocol does
// not allow, or asked for a feature this server does not implement. It
// carries the HTTP status the connection loop should answer with before
// closing. Transport faults are ordinary errors, not *Error.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New builds a protocol violation with the given response status.
func New(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}
