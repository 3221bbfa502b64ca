package internal

import (
	"errors"
	"fmt"
)

// Kind classifies the handful of terminal failure modes the orchestrator
// needs to tell apart when deciding a WebSocket close code.
type Kind uint8

const (
	// Other covers transport-level failures and a peer close observed
	// mid-session; the orchestrator lets the connection close naturally.
	Other Kind = iota
	// InvalidData means the client sent bytes the server cannot honor:
	// bad early data, a failed handshake, or an unsupported request.
	InvalidData
	// ConnectionAborted means the outbound dial to the target failed.
	ConnectionAborted
)

func (k Kind) String() string {
	switch k {
	case InvalidData:
		return "invalid_data"
	case ConnectionAborted:
		return "connection_aborted"
	default:
		return "other"
	}
}

// Error wraps an underlying error with the Kind the orchestrator needs to
// pick a close code. Construct with NewError; compare with KindOf.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error of the given kind whose wrapped error is
// fmt.Errorf(format, args...), so a %w verb in format keeps the cause
// reachable through errors.Is/As.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind carried by err, defaulting to Other for any
// error that isn't one of ours (including nil, which is never terminal).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}
