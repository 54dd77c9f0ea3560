package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, clock func() time.Time) *TokenService {
	t.Helper()

	svc, err := NewTokenService([]byte("test-signing-secret"), TokenConfig{Clock: clock})
	require.NoError(t, err)
	return svc
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t, nil)

	for _, purpose := range []Purpose{PurposeSignup, PurposeReset} {
		token, err := svc.Mint("user@example.com", purpose)
		require.NoError(t, err)

		payload, err := svc.Verify(token)
		require.NoError(t, err)
		require.Equal(t, "user@example.com", payload.Email)
		require.Equal(t, purpose, payload.Purpose)
	}
}

func TestTokenDottedEmailSurvivesSplit(t *testing.T) {
	svc := newTestTokenService(t, nil)

	// The payload JSON contains dots inside the email, so verification must
	// split on the last delimiter, not the first.
	token, err := svc.Mint("a.b@example.com", PurposeSignup)
	require.NoError(t, err)

	payload, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "a.b@example.com", payload.Email)
}

func TestTokenExpiry(t *testing.T) {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, func() time.Time { return current })

	token, err := svc.Mint("user@example.com", PurposeReset)
	require.NoError(t, err)

	current = current.Add(DefaultTokenTTL + time.Second)

	_, err = svc.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenTamperedSignatureRejected(t *testing.T) {
	svc := newTestTokenService(t, nil)

	token, err := svc.Mint("user@example.com", PurposeSignup)
	require.NoError(t, err)

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)

	// Flip a byte in the signature portion (the hex tag after the last dot).
	decoded[len(decoded)-1] ^= 0x01
	tampered := base64.RawURLEncoding.EncodeToString(decoded)

	_, err = svc.Verify(tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenTamperedPayloadRejected(t *testing.T) {
	svc := newTestTokenService(t, nil)

	token, err := svc.Mint("user@example.com", PurposeSignup)
	require.NoError(t, err)

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)

	decoded[2] ^= 0x01
	tampered := base64.RawURLEncoding.EncodeToString(decoded)

	_, err = svc.Verify(tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	minter := newTestTokenService(t, nil)
	verifier, err := NewTokenService([]byte("different-secret"), TokenConfig{})
	require.NoError(t, err)

	token, err := minter.Mint("user@example.com", PurposeSignup)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenMalformedInputsRejected(t *testing.T) {
	svc := newTestTokenService(t, nil)

	for _, token := range []string{
		"",
		"not-base64!!!",
		base64.RawURLEncoding.EncodeToString([]byte("no delimiter here")),
		base64.RawURLEncoding.EncodeToString([]byte(".leadingdot")),
		base64.RawURLEncoding.EncodeToString([]byte("trailingdot.")),
	} {
		_, err := svc.Verify(token)
		require.ErrorIs(t, err, ErrTokenInvalid, "token %q", token)
	}
}

func TestTokenUnrecognisedPurposeRejected(t *testing.T) {
	svc := newTestTokenService(t, nil)

	require.False(t, Purpose("refresh").Valid())

	_, err := svc.Mint("user@example.com", Purpose("refresh"))
	require.Error(t, err)
}
