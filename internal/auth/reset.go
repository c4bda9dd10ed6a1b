package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// ResetLink issues and checks password-reset links.
type ResetLink struct {
	Secret  []byte
	BaseURL string // eg., http://localhost:8080
}

// PasswordStamp fingerprints a password hash. A reset token carries the stamp
// of the password it may replace, so it stops working once that changes.
func PasswordStamp(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}

func (r ResetLink) Sign(email, stamp string, exp time.Time) string {
	return signer{secret: r.Secret}.sign(exp, "reset", strings.ToLower(strings.TrimSpace(email)), stamp)
}

// Verify returns the email and password stamp the token was issued for.
func (r ResetLink) Verify(token string) (email, stamp string, err error) {
	fields, err := signer{secret: r.Secret}.verify(token, 3)
	if err != nil {
		return "", "", err
	}
	if fields[0] != "reset" || fields[1] == "" || fields[2] == "" {
		return "", "", ErrBadPayload
	}
	return fields[1], fields[2], nil
}

func (r ResetLink) URL(email, stamp string, ttl time.Duration) string {
	tok := r.Sign(email, stamp, time.Now().Add(ttl))
	u, _ := url.Parse(r.BaseURL)
	u.Path = "/resetPassword"
	q := u.Query()
	q.Set("token", tok)
	u.RawQuery = q.Encode()
	return u.String()
}
