package registry

import "errors"

var (
	ErrNotFound     = errors.New("registry: not found")
	ErrConflict     = errors.New("registry: conflict")
	ErrInvalidInput = errors.New("registry: invalid input")

	// ErrInviteExpired covers both past-expiry and, in user-facing
	// responses, already-used invites; the two are never distinguished to
	// the caller of a public surface.
	ErrInviteExpired = errors.New("registry: invite expired")
	// ErrInviteUsed is the internal signal that the single-use write found
	// UsedAt already stamped.
	ErrInviteUsed = errors.New("registry: invite already used")
)
