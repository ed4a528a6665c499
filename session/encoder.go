package session

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// formatV1 is the only blob layout written and accepted.
const formatV1 byte = 1

const maxUserIDLength = 255

var (
	errUserIDTooLong = errors.New("user id longer than 255 bytes")
	errEmptyUserID   = errors.New("empty user id")
)

// Encode serialises s as
//
//	version(1) | len(userID)(1) | userID | createdAt(8, BE) | expiresAt(8, BE)
func Encode(s *Session) ([]byte, error) {
	n := len(s.UserID)
	if n > maxUserIDLength {
		return nil, errUserIDTooLong
	}

	out := make([]byte, 0, 2+n+16)
	out = append(out, formatV1, byte(n))
	out = append(out, s.UserID...)
	out = binary.BigEndian.AppendUint64(out, uint64(s.CreatedAt))
	out = binary.BigEndian.AppendUint64(out, uint64(s.ExpiresAt))
	return out, nil
}

// Decode parses a blob produced by Encode. TokenHash is not part of the blob;
// the caller knows it from the key.
func Decode(data []byte) (*Session, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("short header: %d bytes", len(data))
	}
	if data[0] != formatV1 {
		return nil, fmt.Errorf("unknown format version %d", data[0])
	}

	n := int(data[1])
	if n == 0 {
		return nil, errEmptyUserID
	}
	rest := data[2:]
	if len(rest) != n+16 {
		return nil, fmt.Errorf("body is %d bytes, want %d", len(rest), n+16)
	}

	return &Session{
		UserID:    string(rest[:n]),
		CreatedAt: int64(binary.BigEndian.Uint64(rest[n : n+8])),
		ExpiresAt: int64(binary.BigEndian.Uint64(rest[n+8:])),
	}, nil
}
