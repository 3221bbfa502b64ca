package internal

import (
	"context"
	"errors"
	"net/http"

	"nhooyr.io/websocket"
)

// nhooyrConn adapts nhooyr.io/websocket's *Conn to WSConn for the
// server (accept) side.
type nhooyrConn struct {
	c *websocket.Conn
}

// AcceptWebSocket upgrades r if it looks like a WebSocket handshake,
// negotiating one of subprotocols if the client offered it (used to
// echo back early-data framing per RFC 6455 §4.1). It returns a WSConn
// ready for the session orchestrator.
func AcceptWebSocket(w http.ResponseWriter, r *http.Request, subprotocols []string) (WSConn, error) {
	opts := &websocket.AcceptOptions{
		Subprotocols: subprotocols,
		// Compression interacts badly with the early-data framing this
		// protocol relies on; keep frames byte-exact.
		CompressionMode: websocket.CompressionDisabled,
	}
	c, err := websocket.Accept(w, r, opts)
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(-1)
	return &nhooyrConn{c: c}, nil
}

func (c *nhooyrConn) Read(ctx context.Context) (WSMessageType, []byte, error) {
	mt, data, err := c.c.Read(ctx)
	if err != nil {
		return 0, nil, closeErrorFromNhooyr(err)
	}
	switch mt {
	case websocket.MessageText:
		return WSMessageText, data, nil
	default:
		return WSMessageBinary, data, nil
	}
}

func (c *nhooyrConn) Write(ctx context.Context, typ WSMessageType, data []byte) error {
	mt := websocket.MessageBinary
	if typ == WSMessageText {
		mt = websocket.MessageText
	}
	return c.c.Write(ctx, mt, data)
}

func (c *nhooyrConn) Close(code WSCloseCode, reason string) error {
	return c.c.Close(websocket.StatusCode(code), reason)
}

// closeErrorFromNhooyr maps nhooyr.io/websocket's own close-error type onto
// this package's CloseError so Adapter never has to import the library
// directly; a non-close error passes through unchanged.
func closeErrorFromNhooyr(err error) error {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return &CloseError{Code: WSCloseCode(ce.Code), Reason: ce.Reason}
	}
	return err
}
