package internal

import (
	"context"
	"errors"
	"io"
)

// HandleSession wires the core pipeline — adapter → parser → dial →
// relay — for one already-accepted WebSocket. It owns the dial timeout
// and returns the terminal error so the caller (server.go) can decide the
// WebSocket close code. A parse or dial failure leaves ws open so the
// caller can still send that close frame; once relaying has started, the
// relay's half-close of the adapter closes ws itself.
func HandleSession(ctx context.Context, ws WSConn, earlyData []byte, users map[UserID]string, dialer *Dialer, metrics *Metrics) (*VlessRequest, error) {
	adapter := NewAdapter(ctx, ws, earlyData)

	req, err := ParseRequest(adapter, users)
	if err != nil {
		return nil, err
	}

	dialCtx := ctx
	if dialer.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, dialer.Timeout)
		defer cancel()
	}

	target, err := dialer.DialTCP(dialCtx, req.Address, req.Port)
	if err != nil {
		return &req, err
	}
	defer target.Close()

	client := &countingStream{rwc: adapter, onRead: metrics.AddBytesUpstream, onWrite: metrics.AddBytesDownstream}
	return &req, Relay(ctx, client, target)
}

// countingStream wraps an io.ReadWriteCloser and reports bytes moved in
// each direction to the supplied callbacks, the same counting-wrapper
// shape this codebase used to instrument its outbound upstream transfer
// sizes without teaching the transfer loop itself about metrics.
type countingStream struct {
	rwc     io.ReadWriteCloser
	onRead  func(int)
	onWrite func(int)
}

func (c *countingStream) Read(p []byte) (int, error) {
	n, err := c.rwc.Read(p)
	if n > 0 {
		c.onRead(n)
	}
	return n, err
}

func (c *countingStream) Write(p []byte) (int, error) {
	n, err := c.rwc.Write(p)
	if n > 0 {
		c.onWrite(n)
	}
	return n, err
}

func (c *countingStream) Close() error { return c.rwc.Close() }

// CloseWrite lets countingStream still satisfy halfCloser when the
// wrapped stream does, so Relay's half-close propagation keeps working.
func (c *countingStream) CloseWrite() error {
	if hc, ok := c.rwc.(halfCloser); ok {
		return hc.CloseWrite()
	}
	return c.rwc.Close()
}

// CloseCodeFor maps a terminal session error to the WebSocket close code
// the orchestrator should send, per spec: InvalidData and
// ConnectionAborted get an explicit 1003 "Unsupported data"; everything
// else is left to close naturally.
func CloseCodeFor(err error) (code WSCloseCode, reason string, explicit bool) {
	switch KindOf(err) {
	case InvalidData, ConnectionAborted:
		return WSCloseUnsupportedData, "Unsupported data", true
	default:
		return 0, "", false
	}
}

// shouldLogAsWarning reports whether err represents a client-caused or
// environment-caused failure worth a Warn log line rather than Info/Error.
func shouldLogAsWarning(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch KindOf(err) {
	case InvalidData, ConnectionAborted:
		return true
	default:
		return false
	}
}
