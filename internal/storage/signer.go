package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

var (
	// ErrSignatureExpired indicates the signed URL is past its expiry.
	ErrSignatureExpired = errors.New("signature expired")
	// ErrSignatureInvalid indicates the signature does not match.
	ErrSignatureInvalid = errors.New("signature invalid")
)

// HMACSigner mints time-limited download URLs using an HMAC-SHA256 token.
type HMACSigner struct {
	secret []byte
	now    func() time.Time
}

// NewHMACSigner constructs a signer from the shared secret.
func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{secret: []byte(secret), now: time.Now}
}

func (s *HMACSigner) token(path string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\x00%d", path, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign returns a relative URL granting access to path until the TTL elapses.
func (s *HMACSigner) Sign(path string, ttl time.Duration) string {
	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.token(path, expires))
	return "/files/" + path + "?" + q.Encode()
}

// Verify checks the signature and expiry for path.
func (s *HMACSigner) Verify(path, expires, signature string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	if !hmac.Equal([]byte(s.token(path, exp)), []byte(signature)) {
		return ErrSignatureInvalid
	}
	if s.now().Unix() > exp {
		return ErrSignatureExpired
	}
	return nil
}
