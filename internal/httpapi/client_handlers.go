package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"lexvault.org/internal/qr"
)

type grantAccessRequest struct {
	AttorneyID string `json:"attorney_id"`
	OrgID      string `json:"org_id"`
}

type revokeAccessRequest struct {
	AttorneyID string `json:"attorney_id"`
}

type issueQRRequest struct {
	Purpose string `json:"purpose"`
}

func (a *API) handleClientResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/clients/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	clientID := parts[0]

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getClient(w, r, clientID)
	case len(parts) == 2 && parts[1] == "audit":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getAuditTrail(w, r, clientID)
	case len(parts) == 2 && parts[1] == "qr":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.issueQR(w, r, clientID)
	case len(parts) == 3 && parts[1] == "access":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		switch parts[2] {
		case "grant":
			a.grantAccess(w, r, clientID)
		case "revoke":
			a.revokeAccess(w, r, clientID)
		default:
			writeError(w, r, http.StatusNotFound, "resource not found")
		}
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getClient(w http.ResponseWriter, r *http.Request, clientID string) {
	client, err := a.registry.GetClient(r.Context(), principalFrom(r), clientID)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (a *API) grantAccess(w http.ResponseWriter, r *http.Request, clientID string) {
	var req grantAccessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	access, err := a.registry.GrantAccess(r.Context(), principalFrom(r), req.AttorneyID, clientID, req.OrgID)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, access)
}

func (a *API) revokeAccess(w http.ResponseWriter, r *http.Request, clientID string) {
	var req revokeAccessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	access, err := a.registry.RevokeAccess(r.Context(), principalFrom(r), req.AttorneyID, clientID)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, access)
}

func (a *API) getAuditTrail(w http.ResponseWriter, r *http.Request, clientID string) {
	trail, err := a.registry.Trail(r.Context(), principalFrom(r), clientID)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"client_id": clientID,
		"entries":   trail,
	})
}

// issueQR mints a signed single-client link. Authorization rides on
// GetClient: whoever may read the client may mint a link for it.
func (a *API) issueQR(w http.ResponseWriter, r *http.Request, clientID string) {
	var req issueQRRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	client, err := a.registry.GetClient(r.Context(), principalFrom(r), clientID)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	purpose := qr.Purpose(req.Purpose)
	if purpose == "" {
		purpose = qr.PurposeClientUpdate
	}
	token, err := a.qr.Issue(client.ID, purpose)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unsupported purpose")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"url":   strings.TrimRight(a.baseURL, "/") + "/qr-update/" + token,
	})
}

func (a *API) handleGlobalSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	clients, err := a.registry.GlobalSearch(r.Context(), principalFrom(r), query, limit)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query": query,
		"items": clients,
	})
}

// handleQRUpdate resolves a link token to its client. The token is either
// a signed QR payload or a plain invite token from a printed receipt;
// signature verification runs first, then the invite lookup. Invalid
// tokens of either kind get one generic denial.
func (a *API) handleQRUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	token := strings.Trim(strings.TrimPrefix(r.URL.Path, "/qr-update/"), "/")
	if token == "" || strings.Contains(token, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if result := a.qr.Verify(token); result.Valid {
		writeJSON(w, http.StatusOK, map[string]any{
			"client_id": result.ClientID,
			"purpose":   string(result.Purpose),
		})
		return
	}
	_, client, err := a.registry.LookupInvite(r.Context(), token)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"client_id": client.ID,
		"purpose":   string(qr.PurposeClientUpdate),
	})
}
