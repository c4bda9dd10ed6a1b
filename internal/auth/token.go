package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBadToken   = errors.New("bad token")
	ErrBadSig     = errors.New("invalid signature")
	ErrExpired    = errors.New("expired")
	ErrBadPayload = errors.New("bad payload")
)

// signer produces payload.sig tokens where payload is the "|" joined fields
// followed by a unix expiry.
type signer struct {
	secret []byte
	now    func() time.Time
}

func (s signer) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s signer) sign(exp time.Time, fields ...string) string {
	msg := strings.Join(append(fields, strconv.FormatInt(exp.Unix(), 10)), "|")
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(msg))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	payload := base64.RawURLEncoding.EncodeToString([]byte(msg))
	return payload + "." + sig
}

// verify checks the signature and expiry and returns exactly n fields.
func (s signer) verify(token string, n int) ([]string, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return nil, ErrBadToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrBadToken
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(raw)
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return nil, ErrBadSig
	}

	fields := strings.SplitN(string(raw), "|", n+1)
	if len(fields) != n+1 {
		return nil, ErrBadPayload
	}
	ts, err := strconv.ParseInt(fields[n], 10, 64)
	if err != nil {
		return nil, ErrBadPayload
	}
	if s.clock().After(time.Unix(ts, 0)) {
		return nil, ErrExpired
	}
	return fields[:n], nil
}
