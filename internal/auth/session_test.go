package auth

import (
	"testing"
	"time"
)

func TestSessionIssueAndVerify(t *testing.T) {
	sessions, err := NewSessions([]byte("test-secret"))
	if err != nil {
		t.Fatalf("new sessions: %v", err)
	}

	token, err := sessions.Issue("user-1", "a@b.com", NewRoleSet(RoleAttorney), time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	principal, err := sessions.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.Kind != KindUser {
		t.Fatalf("unexpected kind %q", principal.Kind)
	}
	if principal.UserID != "user-1" {
		t.Fatalf("unexpected subject %q", principal.UserID)
	}
	if principal.Email != "a@b.com" {
		t.Fatalf("unexpected email %q", principal.Email)
	}
	if !principal.HasRole(RoleAttorney) {
		t.Fatal("expected attorney role")
	}
	if principal.HasRole(RoleAdmin) {
		t.Fatal("unexpected admin role")
	}
}

func TestSessionVerifyRejectsExpired(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sessions, err := NewSessions([]byte("test-secret"))
	if err != nil {
		t.Fatalf("new sessions: %v", err)
	}
	sessions.WithClock(func() time.Time { return base })

	token, err := sessions.Issue("user-1", "a@b.com", NewRoleSet(RoleClient), time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	sessions.WithClock(func() time.Time { return base.Add(2 * time.Minute) })
	if _, err := sessions.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSessionVerifyRejectsWrongSecret(t *testing.T) {
	issuerAuthority, _ := NewSessions([]byte("secret-a"))
	verifier, _ := NewSessions([]byte("secret-b"))

	token, err := issuerAuthority.Issue("user-1", "", NewRoleSet(RoleClient), time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSessionVerifyRejectsAPITokenOnSharedSecret(t *testing.T) {
	secret := []byte("shared-secret")
	sessions, err := NewSessions(secret)
	if err != nil {
		t.Fatalf("new sessions: %v", err)
	}
	apiTokens, err := NewAPITokens(secret)
	if err != nil {
		t.Fatalf("new api tokens: %v", err)
	}

	scoped, err := apiTokens.Issue("svc-1", []string{ScopeConsole}, time.Minute)
	if err != nil {
		t.Fatalf("issue api token: %v", err)
	}
	if _, err := sessions.Verify(scoped); err != ErrInvalidToken {
		t.Fatalf("session verifier must reject api tokens, got %v", err)
	}

	session, err := sessions.Issue("user-1", "a@b.com", NewRoleSet(RoleClient), time.Minute)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	if _, err := apiTokens.Verify(session); err != ErrInvalidToken {
		t.Fatalf("api token verifier must reject sessions, got %v", err)
	}
}

func TestSessionVerifyRejectsUnknownRole(t *testing.T) {
	if _, err := ParseRoleSet([]string{"SUPERUSER"}); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
}

func TestRoleSetAddRemoveAreCopies(t *testing.T) {
	base := NewRoleSet(RoleClient)
	withAdmin := base.Add(RoleAdmin)
	if base.Has(RoleAdmin) {
		t.Fatal("Add must not mutate the receiver")
	}
	if !withAdmin.Has(RoleAdmin) || !withAdmin.Has(RoleClient) {
		t.Fatal("Add result missing roles")
	}
	without := withAdmin.Remove(RoleAdmin)
	if without.Has(RoleAdmin) {
		t.Fatal("Remove left role behind")
	}
	if !withAdmin.Has(RoleAdmin) {
		t.Fatal("Remove must not mutate the receiver")
	}
}
