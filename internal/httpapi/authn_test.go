package httpapi

import (
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "case insensitive scheme", header: "bearer abc", want: "abc"},
		{name: "surrounding whitespace", header: "  Bearer abc  ", want: "abc"},
		{name: "empty", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic abc", wantErr: true},
		{name: "scheme only", header: "Bearer ", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractBearerToken(tc.header)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got token %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsPublicPath(t *testing.T) {
	public := []string{
		"/healthz",
		"/readyz",
		"/metrics",
		"/v1/info",
		"/v1/auth/session",
		"/v1/auth/register",
		"/invite/tok123",
		"/qr-update/tok456",
	}
	for _, p := range public {
		if !isPublicPath(p) {
			t.Fatalf("expected %s to be public", p)
		}
	}
	protected := []string{
		"/v1/clients/c-1",
		"/v1/clients/invite",
		"/v1/invites/accept",
		"/v1/search/global",
		"/v1/admin/console",
		"/v1/orgs",
	}
	for _, p := range protected {
		if isPublicPath(p) {
			t.Fatalf("expected %s to require authentication", p)
		}
	}
}
