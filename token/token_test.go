package token

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestGenerateShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		tok, err := Generate()
		require.NoError(t, err)
		require.Len(t, tok, TokenLength)
		require.True(t, isLowerHex(tok))
		_, dup := seen[tok]
		require.False(t, dup, "duplicate token generated")
		seen[tok] = struct{}{}
	}
}

func TestHashIsDeterministicAndHidesToken(t *testing.T) {
	tok, err := Generate()
	require.NoError(t, err)

	h1 := Hash(tok)
	h2 := Hash(tok)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.NotEqual(t, tok, h1)
}

func TestVerifyAcceptsOwnSignature(t *testing.T) {
	for i := 0; i < 16; i++ {
		tok, err := Generate()
		require.NoError(t, err)
		assert.True(t, Verify(tok, Sign(tok, testSecret), testSecret))
	}
}

func TestVerifyRejectsEverySingleBitFlip(t *testing.T) {
	tok, err := Generate()
	require.NoError(t, err)
	sig := Sign(tok, testSecret)

	raw, err := hex.DecodeString(sig)
	require.NoError(t, err)
	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			mutated := make([]byte, len(raw))
			copy(mutated, raw)
			mutated[i] ^= 1 << bit
			require.False(t, Verify(tok, hex.EncodeToString(mutated), testSecret), "byte %d bit %d", i, bit)
		}
	}

	for i := 0; i < len(sig); i++ {
		for bit := 0; bit < 8; bit++ {
			b := []byte(sig)
			b[i] ^= 1 << bit
			require.False(t, Verify(tok, string(b), testSecret), "char %d bit %d", i, bit)
		}
	}
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	tok, err := Generate()
	require.NoError(t, err)
	other := []byte("fedcba9876543210fedcba9876543210")
	assert.False(t, Verify(tok, Sign(tok, testSecret), other))
}

func TestPackUnpackRoundTrip(t *testing.T) {
	tok, err := Generate()
	require.NoError(t, err)
	sig := Sign(tok, testSecret)

	gotTok, gotSig, err := Unpack(Pack(tok, sig))
	require.NoError(t, err)
	assert.Equal(t, tok, gotTok)
	assert.Equal(t, sig, gotSig)
}

func TestUnpackRejectsMalformed(t *testing.T) {
	tok := strings.Repeat("a", TokenLength)
	sig := strings.Repeat("b", SignatureLength)

	cases := map[string]string{
		"empty":              "",
		"no separator":       tok + sig,
		"only separator":     ".",
		"empty token":        "." + sig,
		"empty signature":    tok + ".",
		"short signature":    tok + "." + sig[:10],
		"long signature":     tok + "." + sig + "b",
		"short token":        tok[:10] + "." + sig,
		"extra separator":    tok + ".x." + sig,
		"uppercase hex":      strings.ToUpper(tok) + "." + sig,
		"non hex signature":  tok + "." + strings.Repeat("z", SignatureLength),
		"trailing separator": tok + "." + sig + ".",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Unpack(value)
			require.ErrorIs(t, err, ErrMalformedCookie)
		})
	}
}

func TestSignerIssueAndOpen(t *testing.T) {
	s, err := NewSigner(testSecret)
	require.NoError(t, err)

	tok, value, err := s.Issue()
	require.NoError(t, err)

	opened, err := s.Open(value)
	require.NoError(t, err)
	assert.Equal(t, tok, opened)
}

func TestSignerOpenRejectsForgery(t *testing.T) {
	s, err := NewSigner(testSecret)
	require.NoError(t, err)
	forger, err := NewSigner([]byte("an-attacker-chosen-secret-value!!"))
	require.NoError(t, err)

	_, forged, err := forger.Issue()
	require.NoError(t, err)

	_, err = s.Open(forged)
	require.ErrorIs(t, err, ErrBadSignature)

	_, err = s.Open("garbage")
	require.ErrorIs(t, err, ErrMalformedCookie)
}

func TestNewSignerRejectsShortSecret(t *testing.T) {
	_, err := NewSigner([]byte("short"))
	require.ErrorIs(t, err, ErrSecretTooShort)
}

func TestNilSignerOpen(t *testing.T) {
	var s *Signer
	_, err := s.Open("anything")
	require.Error(t, err)
}
