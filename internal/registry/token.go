package registry

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// inviteTokenBytes yields 64 hex characters, comfortably above the 48-char
// floor the invite URL format promises.
const inviteTokenBytes = 32

// NewInviteToken returns an opaque high-entropy invite token. Lookups are
// exact-match only.
func NewInviteToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ClientFingerprint computes the dedup key for a client. Email alone is not
// unique across firms, so the fingerprint covers the normalized name and
// email pair.
func ClientFingerprint(name, email string) string {
	name = strings.ToLower(strings.Join(strings.Fields(name), " "))
	email = strings.ToLower(strings.TrimSpace(email))
	sum := sha256.Sum256([]byte(name + "\x00" + email))
	return hex.EncodeToString(sum[:])
}
