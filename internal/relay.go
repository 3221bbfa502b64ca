package internal

import (
	"context"
	"io"
)

// halfCloser is satisfied by both Adapter and net.TCPConn, letting Relay
// signal "no more data this direction" without tearing down the other.
type halfCloser interface {
	CloseWrite() error
}

// Relay copies bytes between a (the WebSocket adapter) and b (the outbound
// socket) concurrently in both directions until each side reports EOF or
// an error, using one goroutine per direction and propagating each
// direction's end as a half-close on the other stream.
//
// The first error observed in either direction is returned; io.EOF from a
// clean read-side close is not itself an error worth returning once both
// directions have finished, matching the teacher's "first error wins,
// io.EOF doesn't count" shutdown logic.
func Relay(ctx context.Context, a, b io.ReadWriteCloser) error {
	errc := make(chan error, 2)

	go func() {
		_, err := copyBuffered(b, a)
		_ = closeWrite(b)
		errc <- err
	}()
	go func() {
		_, err := copyBuffered(a, b)
		_ = closeWrite(a)
		errc <- err
	}()

	var first error
	for i := 0; i < 2; i++ {
		select {
		case err := <-errc:
			if err != nil && err != io.EOF && first == nil {
				first = err
			}
		case <-ctx.Done():
			_ = a.Close()
			_ = b.Close()
			if first == nil {
				first = ctx.Err()
			}
		}
	}
	return first
}

// relayBufferSize is the per-direction copy buffer. The spec requires at
// least 8 KiB to avoid small-frame pathologies over WebSocket; this
// matches common WebSocket frame sizes without being wastefully large.
const relayBufferSize = 16 * 1024

func copyBuffered(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, relayBufferSize)
	return io.CopyBuffer(dst, src, buf)
}

// closeWrite half-closes c if it supports it, otherwise falls back to a
// full close.
func closeWrite(c io.Closer) error {
	if hc, ok := c.(halfCloser); ok {
		return hc.CloseWrite()
	}
	return c.Close()
}
