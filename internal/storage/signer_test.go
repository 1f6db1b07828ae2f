package storage

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func parseSigned(t *testing.T, signed string) (path, expires, sig string) {
	t.Helper()
	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	return strings.TrimPrefix(u.Path, "/files/"), u.Query().Get("expires"), u.Query().Get("sig")
}

func TestHMACSignerRoundTrip(t *testing.T) {
	signer := NewHMACSigner("secret")

	signed := signer.Sign("documents/r1/file.pdf", time.Minute)
	path, expires, sig := parseSigned(t, signed)

	if path != "documents/r1/file.pdf" {
		t.Fatalf("unexpected path %q", path)
	}
	if err := signer.Verify(path, expires, sig); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestHMACSignerRejectsTampering(t *testing.T) {
	signer := NewHMACSigner("secret")

	signed := signer.Sign("documents/r1/file.pdf", time.Minute)
	_, expires, sig := parseSigned(t, signed)

	if err := signer.Verify("documents/r1/other.pdf", expires, sig); err != ErrSignatureInvalid {
		t.Fatalf("expected ErrSignatureInvalid for altered path, got %v", err)
	}
	if err := signer.Verify("documents/r1/file.pdf", expires, sig+"00"); err != ErrSignatureInvalid {
		t.Fatalf("expected ErrSignatureInvalid for altered sig, got %v", err)
	}
	if err := signer.Verify("documents/r1/file.pdf", "notanumber", sig); err != ErrSignatureInvalid {
		t.Fatalf("expected ErrSignatureInvalid for bad expiry, got %v", err)
	}
}

func TestHMACSignerRejectsExpired(t *testing.T) {
	signer := NewHMACSigner("secret")
	signer.now = func() time.Time { return time.Unix(1000, 0) }

	signed := signer.Sign("documents/r1/file.pdf", time.Minute)
	path, expires, sig := parseSigned(t, signed)

	signer.now = func() time.Time { return time.Unix(1000+61, 0) }
	if err := signer.Verify(path, expires, sig); err != ErrSignatureExpired {
		t.Fatalf("expected ErrSignatureExpired, got %v", err)
	}
}
