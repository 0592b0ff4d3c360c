package httpapi

import (
	"net/http"

	"lexvault.org/internal/console"
)

type verifyAttorneyRequest struct {
	UserID string `json:"user_id"`
}

func (a *API) handleAttorneysVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req verifyAttorneyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.registry.VerifyAttorney(r.Context(), principalFrom(r), req.UserID)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  user,
		"roles": user.RoleLabels(),
	})
}

// handleConsole hides behind the kill switch: when disabled the route is
// indistinguishable from an unregistered path.
func (a *API) handleConsole(w http.ResponseWriter, r *http.Request) {
	if !a.consoleEnabled || a.console == nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req console.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.console.Run(r.Context(), principalFrom(r), req)
	if err != nil {
		handleConsoleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
