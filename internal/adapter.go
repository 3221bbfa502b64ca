package internal

import (
	"context"
	"errors"
	"io"
)

// responseHeader is the 2-byte VLESS response: version echo (0) and addon
// length (0), prepended to the first payload the server ever sends back.
var responseHeader = [2]byte{0x00, 0x00}

// Adapter presents a message-oriented WebSocket (WSConn) as a contiguous
// byte stream — buffer-then-drain reads, one WebSocket frame per write,
// early data seeded ahead of the first live read.
//
// It implements io.ReadWriteCloser so the parser (io.Reader) and the relay
// (io.ReadWriteCloser) both consume it without any WebSocket-specific code.
type Adapter struct {
	ctx context.Context
	ws  WSConn

	rx []byte // buffered, undelivered bytes; seeded with early data

	wroteHeader bool
}

// NewAdapter constructs an Adapter over ws, seeded with earlyData (nil if
// the client sent none). ctx governs every Read/Write on ws and is
// typically the per-session context so cancellation tears the adapter down
// along with everything else.
func NewAdapter(ctx context.Context, ws WSConn, earlyData []byte) *Adapter {
	rx := make([]byte, 0, 4096)
	rx = append(rx, earlyData...)
	return &Adapter{ctx: ctx, ws: ws, rx: rx}
}

// Read implements io.Reader. It drains the internal buffer first — seeded
// by early data and then refilled one WebSocket message at a time — before
// blocking on the next frame. A peer close with a normal code (1000, 1001,
// 1005) surfaces as io.EOF; anything else surfaces as a non-EOF error, per
// this package's resolution of the close-vs-EOF design question.
func (a *Adapter) Read(p []byte) (int, error) {
	for len(a.rx) == 0 {
		typ, data, err := a.ws.Read(a.ctx)
		if err != nil {
			return 0, translateReadError(err)
		}
		if typ != WSMessageBinary && typ != WSMessageText {
			continue
		}
		a.rx = append(a.rx, data...)
	}
	n := copy(p, a.rx)
	a.rx = a.rx[n:]
	return n, nil
}

func translateReadError(err error) error {
	var ce *CloseError
	if errors.As(err, &ce) {
		if ce.Code.IsNormal() {
			return io.EOF
		}
		return NewError(Other, "connection closed: %w", err)
	}
	return NewError(Other, "%w", err)
}

// Write implements io.Writer. The first successful write prepends the
// 2-byte VLESS response header to p and sends both in a single WebSocket
// frame; every later write sends p unchanged, one frame per call. The
// returned count is always len(p), never counting the prepended header.
func (a *Adapter) Write(p []byte) (int, error) {
	if !a.wroteHeader {
		buf := make([]byte, 0, len(responseHeader)+len(p))
		buf = append(buf, responseHeader[:]...)
		buf = append(buf, p...)
		if err := a.ws.Write(a.ctx, WSMessageBinary, buf); err != nil {
			return 0, NewError(Other, "%w", err)
		}
		a.wroteHeader = true
		return len(p), nil
	}
	if err := a.ws.Write(a.ctx, WSMessageBinary, p); err != nil {
		return 0, NewError(Other, "%w", err)
	}
	return len(p), nil
}

// Close shuts down the underlying WebSocket with a normal close.
func (a *Adapter) Close() error {
	return a.ws.Close(WSCloseNormalClosure, "normal close")
}

// CloseWrite is the relay's half-close signal. A WebSocket has no true
// half-close, so this translates to a full close.
func (a *Adapter) CloseWrite() error {
	return a.Close()
}
