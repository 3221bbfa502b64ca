package internal

import (
	"encoding/base64"
	"strings"
)

// DecodeEarlyData extracts the pre-handshake payload a client may have
// piggybacked on the WebSocket upgrade via the Sec-WebSocket-Protocol
// header. An empty header is not an error — it just means there is no
// early data. header is expected in the URL-safe base64 alphabet but this
// also tolerates the standard alphabet and missing padding, the way real
// clients in the wild send it.
func DecodeEarlyData(header string) ([]byte, error) {
	if header == "" {
		return nil, nil
	}
	s := strings.NewReplacer("+", "-", "/", "_").Replace(header)
	s = strings.TrimRight(s, "=")
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, NewError(InvalidData, "unsupported early data: %w", err)
	}
	return data, nil
}
