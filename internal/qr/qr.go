// Package qr implements the short-lived signed tokens embedded in printed
// and emailed receipts. A QR token lets a client reach their update form
// without re-entering credentials. Tokens are stateless: validity is purely
// a function of signature and expiry, so revocation means rotating the
// signing secret or waiting out the short TTL.
package qr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "lexvault-qr"

// Purpose restricts what a verified token may be used for.
type Purpose string

const (
	// PurposeClientUpdate grants access to the client-data update form.
	PurposeClientUpdate Purpose = "client_update"
	// PurposeReceiptView grants read access to a single receipt.
	PurposeReceiptView Purpose = "receipt_view"
)

type claims struct {
	ClientID string `json:"client_id"`
	Purpose  string `json:"purpose"`
	jwt.RegisteredClaims
}

// Result reports the outcome of verifying a raw token. Reason is a coarse
// machine-readable label; it never carries internal identifiers.
type Result struct {
	Valid    bool
	ClientID string
	Purpose  Purpose
	Reason   string
}

// Signer issues and verifies HMAC-signed QR tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a Signer with the given secret and token lifetime.
func NewSigner(secret []byte, ttl time.Duration) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("qr: signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("qr: ttl must be greater than zero")
	}
	return &Signer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// WithClock overrides the time source. Only intended for test use.
func (s *Signer) WithClock(fn func() time.Time) *Signer {
	if fn != nil {
		s.now = fn
	}
	return s
}

// Issue signs a token granting the given purpose on a single client.
func (s *Signer) Issue(clientID string, purpose Purpose) (string, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return "", errors.New("qr: client id is required")
	}
	if purpose != PurposeClientUpdate && purpose != PurposeReceiptView {
		return "", fmt.Errorf("qr: unsupported purpose %q", purpose)
	}

	now := s.now().UTC()
	c := claims{
		ClientID: clientID,
		Purpose:  string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("qr: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks a raw token. The order is fixed: signature integrity first,
// then expiry, then payload shape. An unverified payload is never consulted
// for any decision.
func (s *Signer) Verify(raw string) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{Reason: "missing"}
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Result{Reason: "bad_signature"}
	}

	if parsed.ExpiresAt == nil {
		return Result{Reason: "malformed"}
	}
	if !parsed.ExpiresAt.Time.After(s.now().UTC()) {
		return Result{Reason: "expired"}
	}

	if parsed.Issuer != issuer {
		return Result{Reason: "malformed"}
	}
	clientID := strings.TrimSpace(parsed.ClientID)
	if clientID == "" {
		return Result{Reason: "malformed"}
	}
	purpose := Purpose(parsed.Purpose)
	if purpose != PurposeClientUpdate && purpose != PurposeReceiptView {
		return Result{Reason: "malformed"}
	}

	return Result{Valid: true, ClientID: clientID, Purpose: purpose}
}
