package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Purpose discriminates which flow a verification artifact belongs to, so a
// signup code can never complete a password reset and vice versa.
type Purpose string

const (
	PurposeSignup Purpose = "signup"
	PurposeReset  Purpose = "reset"
)

// Valid reports whether the purpose is one of the two recognised flows.
func (p Purpose) Valid() bool {
	return p == PurposeSignup || p == PurposeReset
}

// DefaultTokenTTL is the fallback lifetime of a bridging token.
const DefaultTokenTTL = 10 * time.Minute

// ErrTokenInvalid is the single opaque failure for every way a token can be
// bad: malformed encoding, wrong signature, expired, unrecognised purpose.
// Callers must not be able to distinguish these cases.
var ErrTokenInvalid = errors.New("verification token: invalid")

// TokenPayload is the plaintext content of a bridging token. Exp is Unix
// milliseconds.
type TokenPayload struct {
	Email   string  `json:"email"`
	Purpose Purpose `json:"purpose"`
	Exp     int64   `json:"exp"`
}

// TokenConfig describes tunable behaviour for the TokenService.
type TokenConfig struct {
	TTL   time.Duration
	Clock func() time.Time
}

// TokenService mints and verifies the signed tokens bridging "code verified"
// to "password set". Tokens are stateless: validity is fully determined by
// the HMAC tag and the embedded expiry, with no server-side registry.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs a token service signing with the provided secret.
func NewTokenService(secret []byte, cfg TokenConfig) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token service: signing secret is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &TokenService{secret: secret, ttl: ttl, now: clock}, nil
}

// Mint serialises {email, purpose, exp}, appends a hex HMAC-SHA256 tag over
// the serialised bytes, and encodes payload.tag with URL-safe unpadded
// base64 so the token travels in JSON bodies and URLs without escaping.
func (s *TokenService) Mint(email string, purpose Purpose) (string, error) {
	if !purpose.Valid() {
		return "", errors.New("token service: unrecognised purpose")
	}

	payload := TokenPayload{
		Email:   email,
		Purpose: purpose,
		Exp:     s.now().Add(s.ttl).UnixMilli(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	raw := make([]byte, 0, len(data)+1+sha256.Size*2)
	raw = append(raw, data...)
	raw = append(raw, '.')
	raw = append(raw, s.sign(data)...)

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Verify decodes and authenticates a token, returning its payload. Any
// failure collapses into ErrTokenInvalid.
func (s *TokenService) Verify(token string) (TokenPayload, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return TokenPayload{}, ErrTokenInvalid
	}

	// Split at the LAST dot: the JSON payload carries an email address,
	// which almost always contains dots of its own.
	idx := bytes.LastIndexByte(decoded, '.')
	if idx <= 0 || idx == len(decoded)-1 {
		return TokenPayload{}, ErrTokenInvalid
	}
	data, tag := decoded[:idx], decoded[idx+1:]

	if !hmac.Equal(tag, s.sign(data)) {
		return TokenPayload{}, ErrTokenInvalid
	}

	var payload TokenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return TokenPayload{}, ErrTokenInvalid
	}

	if payload.Exp < s.now().UnixMilli() {
		return TokenPayload{}, ErrTokenInvalid
	}
	if !payload.Purpose.Valid() {
		return TokenPayload{}, ErrTokenInvalid
	}

	return payload, nil
}

func (s *TokenService) sign(data []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)

	tag := make([]byte, sha256.Size*2)
	hex.Encode(tag, mac.Sum(nil))
	return tag
}
