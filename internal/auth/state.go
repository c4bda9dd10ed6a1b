package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// OAuthState signs the oauth2 state parameter so the callback can reject
// forged or stale redirects without server-side storage.
type OAuthState struct {
	Secret []byte
	TTL    time.Duration
}

// New returns a signed state carrying a random nonce. The nonce is also
// returned so the caller can pin it to the browser session.
func (s OAuthState) New() (state, nonce string, err error) {
	b := make([]byte, 16)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}
	nonce = hex.EncodeToString(b)
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return signer{secret: s.Secret}.sign(time.Now().Add(ttl), "oauth", nonce), nonce, nil
}

// Verify returns the nonce embedded in state.
func (s OAuthState) Verify(state string) (string, error) {
	fields, err := signer{secret: s.Secret}.verify(state, 2)
	if err != nil {
		return "", err
	}
	if fields[0] != "oauth" {
		return "", ErrBadPayload
	}
	return fields[1], nil
}
