// Package audit appends immutable records of every sensitive action. Rows
// are never updated or deleted; revocations and overrides produce new
// entries instead.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"lexvault.org/internal/ids"
	"lexvault.org/internal/obs"
)

// Action identifies what happened. The set is closed; handlers must not
// invent labels inline.
type Action string

const (
	ActionOrgCreated       Action = "ORG_CREATED"
	ActionMemberAdded      Action = "ORG_MEMBER_ADDED"
	ActionClientCreated    Action = "CLIENT_CREATED"
	ActionClientUpdated    Action = "CLIENT_UPDATED"
	ActionPolicyUpdated    Action = "POLICY_UPDATED"
	ActionInviteCreated    Action = "INVITE_CREATED"
	ActionInviteAccepted   Action = "INVITE_ACCEPTED"
	ActionInviteReactivate Action = "INVITE_REACTIVATED"
	ActionAccessGranted    Action = "ACCESS_GRANTED"
	ActionAccessRevoked    Action = "ACCESS_REVOKED"
	ActionAttorneyVerified Action = "ATTORNEY_VERIFIED"
	ActionRoleGranted      Action = "ROLE_GRANTED"
	ActionRoleRevoked      Action = "ROLE_REVOKED"
	ActionGlobalSearch     Action = "GLOBAL_POLICY_SEARCH_PERFORMED"
	ActionConsoleCommand   Action = "ADMIN_CONSOLE_COMMAND"
)

// Entry is an append-only audit record. ActorUserID is empty for system
// or token-originated actions; the target ids are set to whichever apply.
type Entry struct {
	ID          string    `json:"id"`
	Action      Action    `json:"action"`
	ActorUserID string    `json:"actor_user_id,omitempty"`
	ClientID    string    `json:"client_id,omitempty"`
	OrgID       string    `json:"org_id,omitempty"`
	PolicyID    string    `json:"policy_id,omitempty"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrailEntry is an Entry plus its tamper-evidence hash. The hash is
// recomputed from stored fields at read time, not stored itself, so any
// tampering with stored fields changes the recomputed value.
type TrailEntry struct {
	Entry
	Hash string `json:"hash"`
}

// Store persists audit entries.
type Store interface {
	AppendAudit(ctx context.Context, entry Entry) error
	ListAuditByClient(ctx context.Context, clientID string) ([]Entry, error)
}

// Writer appends audit entries and mirrors them as structured log lines.
type Writer struct {
	store Store
	now   func() time.Time
}

// NewWriter constructs a Writer over the given store.
func NewWriter(store Store) *Writer {
	return &Writer{store: store, now: time.Now}
}

// WithClock overrides the time source. Only intended for test use.
func (w *Writer) WithClock(fn func() time.Time) *Writer {
	if fn != nil {
		w.now = fn
	}
	return w
}

// Append writes an entry and reports failure to the caller. The admin
// console uses this before executing a command and fails closed when the
// write does not land.
func (w *Writer) Append(ctx context.Context, entry Entry) (Entry, error) {
	entry = w.fill(entry)
	if err := w.store.AppendAudit(ctx, entry); err != nil {
		return Entry{}, err
	}
	w.mirror(entry)
	return entry, nil
}

// Record writes an entry best-effort. A persistence failure is logged to
// the operational log and the triggering business operation proceeds;
// audit failure here is a secondary-system fault, not a security violation.
func (w *Writer) Record(ctx context.Context, entry Entry) Entry {
	entry = w.fill(entry)
	if err := w.store.AppendAudit(ctx, entry); err != nil {
		obs.Emit("error", "audit_append_failed", map[string]any{
			"action": string(entry.Action),
			"error":  err.Error(),
		})
		return entry
	}
	w.mirror(entry)
	return entry
}

// Prepare fills ID and timestamp without persisting. Stores that append
// the entry inside their own transaction take a prepared entry and the
// caller announces it with Mirror after commit.
func (w *Writer) Prepare(entry Entry) Entry {
	return w.fill(entry)
}

// Mirror emits the structured log line for an entry persisted elsewhere.
func (w *Writer) Mirror(entry Entry) {
	w.mirror(entry)
}

// Trail returns the audit entries for a client, each carrying its
// recomputed hash.
func (w *Writer) Trail(ctx context.Context, clientID string) ([]TrailEntry, error) {
	entries, err := w.store.ListAuditByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := make([]TrailEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, TrailEntry{Entry: e, Hash: EntryHash(e)})
	}
	return out, nil
}

func (w *Writer) fill(entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = w.now().UTC()
	}
	return entry
}

func (w *Writer) mirror(entry Entry) {
	obs.Emit("info", "audit", map[string]any{
		"audit_id":  entry.ID,
		"action":    string(entry.Action),
		"actor":     entry.ActorUserID,
		"client_id": entry.ClientID,
		"org_id":    entry.OrgID,
		"message":   entry.Message,
	})
}

// EntryHash is a deterministic SHA-256 over the entry's immutable fields.
// Field order is fixed; timestamps are canonicalized to UTC RFC3339Nano.
// This detects post-hoc field tampering, not wholesale deletion or
// reordering of entries; a hash chain would be needed for that.
func EntryHash(e Entry) string {
	var b strings.Builder
	b.WriteString(e.ID)
	b.WriteByte('|')
	b.WriteString(string(e.Action))
	b.WriteByte('|')
	b.WriteString(e.ActorUserID)
	b.WriteByte('|')
	b.WriteString(e.ClientID)
	b.WriteByte('|')
	b.WriteString(e.OrgID)
	b.WriteByte('|')
	b.WriteString(e.PolicyID)
	b.WriteByte('|')
	b.WriteString(e.Message)
	b.WriteByte('|')
	b.WriteString(e.CreatedAt.UTC().Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
