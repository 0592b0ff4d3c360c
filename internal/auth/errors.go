package auth

import "errors"

var (
	// ErrUnauthenticated means no principal could be resolved (401).
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrForbidden means the principal is known but lacks privilege (403).
	ErrForbidden = errors.New("auth: forbidden")
	// ErrInvalidToken indicates a token failed signature or claim checks.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrInvalidInput indicates malformed caller input.
	ErrInvalidInput = errors.New("auth: invalid input")
)
