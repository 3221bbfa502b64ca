package internal

import (
	"context"
	"io"
	"net"
	"testing"
	"time"
)

func TestRelay_BidirectionalCopy(t *testing.T) {
	aServer, aClient := net.Pipe()
	bServer, bClient := net.Pipe()
	defer aClient.Close()
	defer bClient.Close()

	done := make(chan error, 1)
	go func() {
		done <- Relay(context.Background(), aServer, bServer)
	}()

	go func() {
		_, _ = aClient.Write([]byte("ping"))
	}()
	buf := make([]byte, 4)
	if _, err := io.ReadFull(bClient, buf); err != nil {
		t.Fatalf("read on b: %v", err)
	}
	if string(buf) != "ping" {
		t.Fatalf("got %q want ping", buf)
	}

	go func() {
		_, _ = bClient.Write([]byte("pong"))
	}()
	if _, err := io.ReadFull(aClient, buf); err != nil {
		t.Fatalf("read on a: %v", err)
	}
	if string(buf) != "pong" {
		t.Fatalf("got %q want pong", buf)
	}

	aClient.Close()
	bClient.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Relay returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Relay did not return after both sides closed")
	}
}

func TestRelay_ContextCancelTearsDownBothSides(t *testing.T) {
	aServer, aClient := net.Pipe()
	bServer, bClient := net.Pipe()
	defer aClient.Close()
	defer bClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Relay(ctx, aServer, bServer)
	}()

	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Relay should return the cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Relay did not return after context cancellation")
	}

	// Both pipes should now be torn down from the server side.
	if _, err := aClient.Write([]byte("x")); err == nil {
		t.Fatal("expected write on a to fail after cancellation")
	}
	if _, err := bClient.Write([]byte("x")); err == nil {
		t.Fatal("expected write on b to fail after cancellation")
	}
}

// pipeHalfCloser adapts net.Conn (from net.Pipe, which has no CloseWrite)
// into something Relay's closeWrite helper would treat as a real
// half-close, letting tests exercise the halfCloser branch directly.
type pipeHalfCloser struct {
	net.Conn
	closedWrite bool
}

func (p *pipeHalfCloser) CloseWrite() error {
	p.closedWrite = true
	return p.Conn.Close()
}

func TestRelay_PrefersCloseWriteOverClose(t *testing.T) {
	aServer, aClient := net.Pipe()
	bServer, bClient := net.Pipe()
	defer aClient.Close()
	defer bClient.Close()

	a := &pipeHalfCloser{Conn: aServer}
	b := &pipeHalfCloser{Conn: bServer}

	done := make(chan error, 1)
	go func() {
		done <- Relay(context.Background(), a, b)
	}()

	aClient.Close()
	bClient.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Relay did not return")
	}

	if !a.closedWrite || !b.closedWrite {
		t.Fatalf("expected CloseWrite on both sides, got a=%v b=%v", a.closedWrite, b.closedWrite)
	}
}
