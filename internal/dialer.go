package internal

import (
	"context"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Dialer opens the outbound TCP connection named by a parsed VLESS
// request: a net.Dialer plus an optional Linux SO_MARK on the outbound
// socket.
type Dialer struct {
	Timeout time.Duration
	Fwmark  uint32
}

// DialTCP connects to address:port. address is already rendered in the
// dialer-ready textual form ParseRequest produces (dotted-quad, bracketed
// IPv6, or a domain name).
func (d *Dialer) DialTCP(ctx context.Context, address string, port uint16) (net.Conn, error) {
	nd := &net.Dialer{Timeout: d.Timeout}
	if d.Fwmark != 0 {
		nd.Control = func(_, _ string, c syscall.RawConn) error {
			var ctrlErr error
			if err := c.Control(func(fd uintptr) {
				ctrlErr = setSocketMark(fd, d.Fwmark)
			}); err != nil {
				return err
			}
			return ctrlErr
		}
	}

	host := strings.Trim(address, "[]")
	conn, err := nd.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return nil, NewError(ConnectionAborted, "dial %s:%d: %w", address, port, err)
	}
	return conn, nil
}
