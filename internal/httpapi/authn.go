package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"lexvault.org/internal/auth"
	"lexvault.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/v1/auth/register",
	"/v1/auth/session",
	"/",
}
var publicPrefixes = []string{
	"/invite/",
	"/qr-update/",
}

// withAuth resolves the caller's principal before any protected handler
// runs. Missing or malformed credentials are a 401; role and scope
// decisions stay with the handlers and the registry policy layer (403).
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.CountDenial("unauthenticated")
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		principal, err := a.resolvePrincipal(token)
		if err != nil {
			obs.CountDenial("unauthenticated")
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolvePrincipal tries the session authority first and falls back to
// scoped API tokens. The token_type claim keeps the two lineages apart
// even though both are HS256.
func (a *API) resolvePrincipal(token string) (auth.Principal, error) {
	if a.sessions != nil {
		if p, err := a.sessions.Verify(token); err == nil {
			return p, nil
		}
	}
	if a.apiTokens != nil {
		if p, err := a.apiTokens.Verify(token); err == nil {
			return p, nil
		}
	}
	return auth.Principal{}, auth.ErrInvalidToken
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func principalFrom(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}
