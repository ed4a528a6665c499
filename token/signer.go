package token

import "errors"

// MinSecretLength is the minimum accepted signing secret size in bytes.
const MinSecretLength = 32

// ErrSecretTooShort is returned by NewSigner for secrets below MinSecretLength.
var ErrSecretTooShort = errors.New("signing secret must be at least 32 bytes")

// Signer binds the process signing secret to the cookie codec. It is safe
// for concurrent use and shared by the edge guard and the session manager.
type Signer struct {
	secret []byte
}

// NewSigner copies secret and returns a Signer.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	cp := make([]byte, len(secret))
	copy(cp, secret)
	return &Signer{secret: cp}, nil
}

// Issue generates a new token and returns it together with its cookie value.
func (s *Signer) Issue() (string, string, error) {
	tok, err := Generate()
	if err != nil {
		return "", "", err
	}
	return tok, s.Seal(tok), nil
}

// Seal returns the cookie value for an existing token.
func (s *Signer) Seal(tok string) string {
	return Pack(tok, Sign(tok, s.secret))
}

// Open returns the raw token carried by value when the value is well formed
// and correctly signed.
func (s *Signer) Open(value string) (string, error) {
	if s == nil {
		return "", ErrBadSignature
	}
	tok, sig, err := Unpack(value)
	if err != nil {
		return "", err
	}
	if !Verify(tok, sig, s.secret) {
		return "", ErrBadSignature
	}
	return tok, nil
}
