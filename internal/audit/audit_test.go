package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memStore struct {
	entries   []Entry
	appendErr error
}

func (m *memStore) AppendAudit(_ context.Context, entry Entry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memStore) ListAuditByClient(_ context.Context, clientID string) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if e.ClientID == clientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	store := &memStore{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w := NewWriter(store).WithClock(func() time.Time { return now })

	entry := w.Record(context.Background(), Entry{
		Action:   ActionInviteAccepted,
		ClientID: "cl-1",
		Message:  "invite accepted",
	})

	if entry.ID == "" {
		t.Fatal("expected generated id")
	}
	if !entry.CreatedAt.Equal(now) {
		t.Fatalf("unexpected timestamp %s", entry.CreatedAt)
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected 1 stored entry, got %d", len(store.entries))
	}
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	store := &memStore{appendErr: errors.New("disk on fire")}
	w := NewWriter(store)

	// Business operations proceed even when the audit write fails.
	entry := w.Record(context.Background(), Entry{Action: ActionClientCreated, Message: "x"})
	if entry.ID == "" {
		t.Fatal("expected entry returned despite store failure")
	}
}

func TestAppendPropagatesStoreFailure(t *testing.T) {
	store := &memStore{appendErr: errors.New("disk on fire")}
	w := NewWriter(store)

	// The console path must see the failure so it can refuse to execute.
	if _, err := w.Append(context.Background(), Entry{Action: ActionConsoleCommand, Message: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestEntryHashDeterministicAndTamperEvident(t *testing.T) {
	e := Entry{
		ID:          "01ABC",
		Action:      ActionAccessGranted,
		ActorUserID: "u-1",
		ClientID:    "cl-1",
		OrgID:       "org-1",
		Message:     "access granted",
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	h1 := EntryHash(e)
	h2 := EntryHash(e)
	if h1 != h2 {
		t.Fatal("hash must be deterministic")
	}
	if len(h1) != 64 {
		t.Fatalf("expected sha256 hex, got %d chars", len(h1))
	}

	tampered := e
	tampered.Message = "access granted to someone else"
	if EntryHash(tampered) == h1 {
		t.Fatal("hash must change when a field changes")
	}

	shifted := e
	shifted.CreatedAt = e.CreatedAt.Add(time.Second)
	if EntryHash(shifted) == h1 {
		t.Fatal("hash must cover the timestamp")
	}
}

func TestTrailCarriesHashes(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store)

	w.Record(context.Background(), Entry{Action: ActionInviteCreated, ClientID: "cl-1", Message: "a"})
	w.Record(context.Background(), Entry{Action: ActionInviteAccepted, ClientID: "cl-1", Message: "b"})
	w.Record(context.Background(), Entry{Action: ActionInviteCreated, ClientID: "cl-2", Message: "c"})

	trail, err := w.Trail(context.Background(), "cl-1")
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(trail))
	}
	for _, te := range trail {
		if te.Hash != EntryHash(te.Entry) {
			t.Fatal("hash mismatch")
		}
	}
}
