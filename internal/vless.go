package internal

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"
	"unicode/utf8"
)

// VLESS commands (§6 wire format).
const (
	cmdTCP byte = 1
	cmdUDP byte = 2
)

// VLESS address types (§6 wire format).
const (
	atypIPv4   byte = 1
	atypDomain byte = 2
	atypIPv6   byte = 3
)

// VlessRequest is the parsed VLESS handshake: everything the orchestrator
// needs to authenticate the client and dial the target.
type VlessRequest struct {
	UUID    [16]byte
	User    string
	Command byte
	Port    uint16
	Address string
}

// ParseRequest reads a VLESS request header from r, which must be an
// io.Reader that blocks until the requested number of bytes is available
// (io.ReadFull's contract) — the Adapter satisfies this. It validates the
// version, authenticates the embedded user id against the configured
// users, and rejects anything but a plaintext TCP request, exactly per
// spec.
//
// Byte accounting follows the wire table directly: 18 bytes of
// version+uuid+addon-length, the addon bytes (discarded), 4 bytes of
// command+port+address-type packed together, then the address itself.
func ParseRequest(r io.Reader, users map[UserID]string) (VlessRequest, error) {
	var req VlessRequest

	prefix := make([]byte, 18)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return req, NewError(InvalidData, "read request prefix: %w", err)
	}
	if prefix[0] != 0 {
		return req, NewError(InvalidData, "invalid client protocol version: %d", prefix[0])
	}
	copy(req.UUID[:], prefix[1:17])
	name, err := AuthenticateAny(users, req.UUID[:])
	if err != nil {
		return req, err
	}
	req.User = name

	addonLen := int(prefix[17])
	if addonLen > 0 {
		addon := make([]byte, addonLen)
		if _, err := io.ReadFull(r, addon); err != nil {
			return req, NewError(InvalidData, "read addons: %w", err)
		}
	}

	addrPrefix := make([]byte, 4)
	if _, err := io.ReadFull(r, addrPrefix); err != nil {
		return req, NewError(InvalidData, "read address prefix: %w", err)
	}

	switch addrPrefix[0] {
	case cmdTCP:
		req.Command = cmdTCP
	case cmdUDP:
		return req, NewError(InvalidData, "UDP was requested")
	default:
		return req, NewError(InvalidData, "unknown requested protocol: %d", addrPrefix[0])
	}

	req.Port = binary.BigEndian.Uint16(addrPrefix[1:3])

	address, err := readAddress(r, addrPrefix[3])
	if err != nil {
		return req, err
	}
	req.Address = address

	return req, nil
}

// readAddress reads the address payload for atyp and renders it into the
// textual form the outbound dialer expects.
func readAddress(r io.Reader, atyp byte) (string, error) {
	switch atyp {
	case atypIPv4:
		b := make([]byte, 4)
		if _, err := io.ReadFull(r, b); err != nil {
			return "", NewError(InvalidData, "read ipv4 address: %w", err)
		}
		return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3]), nil

	case atypDomain:
		lenByte := make([]byte, 1)
		if _, err := io.ReadFull(r, lenByte); err != nil {
			return "", NewError(InvalidData, "read domain length: %w", err)
		}
		domain := make([]byte, lenByte[0])
		if _, err := io.ReadFull(r, domain); err != nil {
			return "", NewError(InvalidData, "read domain: %w", err)
		}
		if !utf8.Valid(domain) {
			return "", NewError(InvalidData, "failed to decode address: invalid utf-8")
		}
		return string(domain), nil

	case atypIPv6:
		b := make([]byte, 16)
		if _, err := io.ReadFull(r, b); err != nil {
			return "", NewError(InvalidData, "read ipv6 address: %w", err)
		}
		addr := netip.AddrFrom16([16]byte(b))
		return "[" + addr.String() + "]", nil

	default:
		return "", NewError(InvalidData, "invalid address type: %d", atyp)
	}
}

