package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"lexvault.org/internal/auth"
	"lexvault.org/internal/console"
	"lexvault.org/internal/obs"
	"lexvault.org/internal/registry"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// handleRegistryError maps domain errors to HTTP statuses. Bodies stay
// generic for denial cases so responses cannot be used to probe for
// resource existence.
func handleRegistryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		obs.CountDenial("unauthenticated")
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		obs.CountDenial("forbidden")
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, registry.ErrInviteUsed):
		writeError(w, r, http.StatusForbidden, "invalid or expired invitation")
	case errors.Is(err, registry.ErrInviteExpired):
		writeError(w, r, http.StatusBadRequest, "invalid or expired invitation")
	case errors.Is(err, registry.ErrInvalidInput), errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrConflict):
		writeError(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "operation failed")
	}
}

func handleConsoleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, console.ErrRateLimited):
		obs.CountDenial("rate_limited")
		w.Header().Set("Retry-After", "1")
		writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
	case errors.Is(err, console.ErrAuditUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "console unavailable")
	case errors.Is(err, console.ErrUnknownCommand), errors.Is(err, console.ErrMissingArgument):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		handleRegistryError(w, r, err)
	}
}
