package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	// RawSize is the number of random bytes in a session token.
	RawSize = 32
	// TokenLength is the hex-encoded token length.
	TokenLength = RawSize * 2
	// SignatureLength is the hex-encoded HMAC-SHA256 length.
	SignatureLength = sha256.Size * 2
	// Separator joins token and signature in a cookie value.
	Separator = "."
)

var (
	// ErrMalformedCookie is returned by Unpack for values that do not follow the cookie layout.
	ErrMalformedCookie = errors.New("malformed session cookie")
	// ErrBadSignature is returned when a structurally valid value carries the wrong signature.
	ErrBadSignature = errors.New("session cookie signature mismatch")
)

// Generate returns a fresh 32-byte random token, hex encoded.
func Generate() (string, error) {
	var raw [RawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

// Hash returns the hex SHA-256 digest used as the storage key for a token.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Sign returns hex(HMAC-SHA256(token, secret)).
func Sign(token string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature for token and compares it with signature in
// constant time.
func Verify(token, signature string, secret []byte) bool {
	expected := Sign(token, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// Pack joins a token and its signature into a cookie value.
func Pack(token, signature string) string {
	return token + Separator + signature
}

// Unpack splits a cookie value on its last separator. Both halves must be
// non-empty lowercase hex of the expected length.
func Unpack(value string) (string, string, error) {
	idx := strings.LastIndex(value, Separator)
	if idx <= 0 || idx == len(value)-1 {
		return "", "", ErrMalformedCookie
	}

	tok := value[:idx]
	sig := value[idx+1:]
	if len(tok) != TokenLength || len(sig) != SignatureLength {
		return "", "", ErrMalformedCookie
	}
	if !isLowerHex(tok) || !isLowerHex(sig) {
		return "", "", ErrMalformedCookie
	}

	return tok, sig, nil
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
