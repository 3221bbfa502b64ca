package internal

import (
	"crypto/subtle"
	"fmt"

	"github.com/google/uuid"
)

// UserID is the 16-byte identifier a VLESS client's handshake must match.
type UserID [16]byte

// ParseUserID validates s as a canonical UUID (github.com/google/uuid) and
// derives the 16 authentication bytes from it.
//
// The wire format allows an arbitrary hex-digit string with non-hex
// characters silently skipped, which is how a misconfigured short id could
// historically authenticate against a byte prefix. This package closes that
// length-mismatch loophole here, at config-parse time, not in the
// comparator. Routing
// every configured id through uuid.Parse first rejects anything that isn't
// exactly 32 hex digits before it ever reaches the wire comparator, so
// Authenticate can safely require exact-length, constant-time comparison.
func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user id %q: %w", s, err)
	}
	return UserID(id), nil
}

// Authenticate compares candidate (the 16 raw bytes read off the wire)
// against id in constant time. candidate must be exactly 16 bytes; the
// parser guarantees this by construction, so any other length is a
// programmer error rather than a protocol one.
func Authenticate(id UserID, candidate []byte) error {
	if len(candidate) != len(id) {
		return NewError(InvalidData, "unknown user id")
	}
	if subtle.ConstantTimeCompare(id[:], candidate) != 1 {
		return NewError(InvalidData, "unknown user id")
	}
	return nil
}

// AuthenticateAny checks candidate against every id in users, returning the
// matching user's name. Each comparison still runs in constant time; the
// scan across users is not itself constant-time, but with a small,
// operator-controlled user list this does not leak anything beyond "a
// request arrived", which is already observable.
func AuthenticateAny(users map[UserID]string, candidate []byte) (string, error) {
	if len(candidate) != 16 {
		return "", NewError(InvalidData, "unknown user id")
	}
	for uid, name := range users {
		if subtle.ConstantTimeCompare(uid[:], candidate) == 1 {
			return name, nil
		}
	}
	return "", NewError(InvalidData, "unknown user id")
}
