package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "lexvault"

const sessionTokenType = "session"

// SessionClaims represents JWT claims carried by session tokens. The
// token_type claim separates sessions from scoped API tokens; both
// lineages reject the other's type even when signed with the same secret.
type SessionClaims struct {
	Roles     []string `json:"roles"`
	Email     string   `json:"email,omitempty"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 session tokens.
type Sessions struct {
	secret []byte
	now    func() time.Time
}

// NewSessions constructs a session token authority.
func NewSessions(secret []byte) (*Sessions, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: session secret is required")
	}
	return &Sessions{secret: secret, now: time.Now}, nil
}

// WithClock overrides the time source. Only intended for test use.
func (s *Sessions) WithClock(fn func() time.Time) *Sessions {
	if fn != nil {
		s.now = fn
	}
	return s
}

// Issue signs a session JWT for the given user.
func (s *Sessions) Issue(userID, email string, roles RoleSet, ttl time.Duration) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%w: ttl must be greater than zero", ErrInvalidInput)
	}

	now := s.now().UTC()
	claims := SessionClaims{
		Roles:     roles.Labels(),
		Email:     strings.TrimSpace(strings.ToLower(email)),
		TokenType: sessionTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and required claims, returning the
// principal it encodes.
func (s *Sessions) Verify(raw string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Principal{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	if err := s.validateClaims(claims); err != nil {
		return Principal{}, ErrInvalidToken
	}
	roles, err := ParseRoleSet(claims.Roles)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	return UserPrincipal(claims.Subject, claims.Email, roles), nil
}

func (s *Sessions) validateClaims(claims *SessionClaims) error {
	if claims.TokenType != sessionTokenType {
		return fmt.Errorf("unexpected token type: %s", claims.TokenType)
	}
	if claims.Issuer != issuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	now := s.now().UTC()
	if now.After(claims.ExpiresAt.Time) {
		return errors.New("token expired")
	}
	if claims.NotBefore != nil && now.Before(claims.NotBefore.Time) {
		return errors.New("token not yet valid")
	}
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return errors.New("token issued in the future")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}
