package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// API token scopes recognized by the route guards.
const (
	ScopeConsole = "console"
	ScopeSearch  = "search"
)

// apiTokenClaims carries the declared scope set for service callers.
type apiTokenClaims struct {
	Scopes    []string `json:"scopes"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}

const apiTokenType = "api"

// APITokens issues and verifies scoped bearer tokens. These are distinct
// from session tokens: a different secret, an explicit scope set, and no
// role claims.
type APITokens struct {
	secret []byte
	now    func() time.Time
}

// NewAPITokens constructs an API token authority.
func NewAPITokens(secret []byte) (*APITokens, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: api token secret is required")
	}
	return &APITokens{secret: secret, now: time.Now}, nil
}

// WithClock overrides the time source. Only intended for test use.
func (a *APITokens) WithClock(fn func() time.Time) *APITokens {
	if fn != nil {
		a.now = fn
	}
	return a
}

// Issue signs a scoped API token for the given subject.
func (a *APITokens) Issue(subject string, scopes []string, ttl time.Duration) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%w: ttl must be greater than zero", ErrInvalidInput)
	}
	normalized := dedupeScopes(scopes)
	if len(normalized) == 0 {
		return "", fmt.Errorf("%w: at least one scope is required", ErrInvalidInput)
	}

	now := a.now().UTC()
	claims := apiTokenClaims{
		Scopes:    normalized,
		TokenType: apiTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks an API token and returns the scoped principal it encodes.
func (a *APITokens) Verify(raw string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Principal{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &apiTokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*apiTokenClaims)
	if !ok || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	if claims.TokenType != apiTokenType {
		return Principal{}, ErrInvalidToken
	}
	if claims.Issuer != issuer || strings.TrimSpace(claims.Subject) == "" {
		return Principal{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(a.now().UTC()) {
		return Principal{}, ErrInvalidToken
	}
	scopes := dedupeScopes(claims.Scopes)
	if len(scopes) == 0 {
		return Principal{}, ErrInvalidToken
	}
	return APITokenPrincipal(claims.Subject, scopes), nil
}

func dedupeScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(scopes))
	var out []string
	for _, s := range scopes {
		s = strings.TrimSpace(strings.ToLower(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
