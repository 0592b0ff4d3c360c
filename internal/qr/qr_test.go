package qr

import (
	"strings"
	"testing"
	"time"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner([]byte("qr-test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return s
}

func TestIssueAndVerify(t *testing.T) {
	s := newTestSigner(t)

	raw, err := s.Issue("client-1", PurposeClientUpdate)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	res := s.Verify(raw)
	if !res.Valid {
		t.Fatalf("expected valid, got reason %q", res.Reason)
	}
	if res.ClientID != "client-1" {
		t.Fatalf("unexpected client id %q", res.ClientID)
	}
	if res.Purpose != PurposeClientUpdate {
		t.Fatalf("unexpected purpose %q", res.Purpose)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	s := newTestSigner(t)

	raw, err := s.Issue("client-1", PurposeClientUpdate)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	// Flip a character in the payload; the signature must fail before any
	// claim is inspected.
	payload := []byte(parts[1])
	payload[0] ^= 0x01
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	res := s.Verify(tampered)
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if res.Reason != "bad_signature" {
		t.Fatalf("expected bad_signature, got %q", res.Reason)
	}
	if res.ClientID != "" {
		t.Fatal("unverified payload must not leak")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSigner(t)
	s.WithClock(func() time.Time { return base })

	raw, err := s.Issue("client-1", PurposeReceiptView)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	s.WithClock(func() time.Time { return base.Add(2 * time.Hour) })
	res := s.Verify(raw)
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if res.Reason != "expired" {
		t.Fatalf("expected expired, got %q", res.Reason)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	s := newTestSigner(t)
	other, err := NewSigner([]byte("some-other-secret"), time.Hour)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	raw, err := other.Issue("client-1", PurposeClientUpdate)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if res := s.Verify(raw); res.Valid || res.Reason != "bad_signature" {
		t.Fatalf("expected bad_signature, got %+v", res)
	}
}

func TestIssueRejectsUnknownPurpose(t *testing.T) {
	s := newTestSigner(t)
	if _, err := s.Issue("client-1", Purpose("admin_everything")); err == nil {
		t.Fatal("expected error for unknown purpose")
	}
}

func TestVerifyRejectsEmptyToken(t *testing.T) {
	s := newTestSigner(t)
	if res := s.Verify("   "); res.Valid || res.Reason != "missing" {
		t.Fatalf("expected missing, got %+v", res)
	}
}
