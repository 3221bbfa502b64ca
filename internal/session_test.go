package internal

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"
)

func buildSessionWire(t *testing.T, id UserID, target net.Addr, payload []byte) []byte {
	t.Helper()
	tcpAddr := target.(*net.TCPAddr)

	var buf bytes.Buffer
	buf.WriteByte(0)
	buf.Write(id[:])
	buf.WriteByte(0)
	buf.WriteByte(cmdTCP)
	portBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(portBuf, uint16(tcpAddr.Port))
	buf.Write(portBuf)
	buf.WriteByte(atypIPv4)
	buf.Write(tcpAddr.IP.To4())
	buf.Write(payload)
	return buf.Bytes()
}

func TestHandleSession_EndToEndEcho(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				if _, werr := conn.Write(buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	users, id := testUsers(t)
	wire := buildSessionWire(t, id, ln.Addr(), []byte("hello target"))

	ws := &fakeWSConn{inbound: [][]byte{wire}}
	dialer := &Dialer{Timeout: 2 * time.Second}

	req, err := HandleSession(context.Background(), ws, nil, users, dialer, NewMetrics())
	if err != nil {
		t.Fatalf("HandleSession: %v", err)
	}
	if req.User != "alice" {
		t.Fatalf("req.User = %q", req.User)
	}

	if len(ws.outbound) == 0 {
		t.Fatal("expected at least one outbound frame (response header + echoed payload)")
	}
	first := ws.outbound[0]
	if len(first) < 2 || first[0] != 0 || first[1] != 0 {
		t.Fatalf("first outbound frame missing response header: %x", first)
	}
	if !bytes.Contains(first, []byte("hello target")) {
		t.Fatalf("echoed payload not found in %x", first)
	}
}

func TestHandleSession_AuthFailureNeverDials(t *testing.T) {
	users, _ := testUsers(t)
	stranger, _ := ParseUserID("ffffffff-ffff-ffff-ffff-ffffffffffff")
	wire := buildSessionWire(t, stranger, &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}, nil)

	ws := &fakeWSConn{inbound: [][]byte{wire}}
	dialer := &Dialer{Timeout: time.Second}

	_, err := HandleSession(context.Background(), ws, nil, users, dialer, NewMetrics())
	if KindOf(err) != InvalidData {
		t.Fatalf("err=%v want InvalidData", err)
	}
}

func TestHandleSession_DialFailureIsConnectionAborted(t *testing.T) {
	users, id := testUsers(t)
	// A just-freed loopback port with nothing listening should refuse quickly.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close() // free the port, nothing will be listening on it

	wire := buildSessionWire(t, id, addr, nil)
	ws := &fakeWSConn{inbound: [][]byte{wire}}
	dialer := &Dialer{Timeout: 2 * time.Second}

	_, err = HandleSession(context.Background(), ws, nil, users, dialer, NewMetrics())
	if KindOf(err) != ConnectionAborted {
		t.Fatalf("err=%v want ConnectionAborted", err)
	}
}

func TestCloseCodeFor(t *testing.T) {
	if code, _, explicit := CloseCodeFor(nil); explicit || code != 0 {
		t.Fatalf("nil error should not force a close code")
	}
	if code, _, explicit := CloseCodeFor(NewError(InvalidData, "bad")); !explicit || code != WSCloseUnsupportedData {
		t.Fatalf("InvalidData should force 1003, got code=%d explicit=%v", code, explicit)
	}
}
