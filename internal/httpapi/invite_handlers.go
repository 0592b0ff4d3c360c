package httpapi

import (
	"net/http"
	"strings"

	"lexvault.org/internal/obs"
)

type inviteClientRequest struct {
	OrgID string `json:"org_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type acceptInviteRequest struct {
	Token string `json:"token"`
}

func (a *API) handleClientsInvite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req inviteClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	client, invite, err := a.registry.InviteClient(r.Context(), principalFrom(r), req.OrgID, req.Name, req.Email)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}

	link := strings.TrimRight(a.baseURL, "/") + "/invite/" + invite.Token
	if err := a.email.SendInvite(r.Context(), invite.Email, link); err != nil {
		obs.Emit("warn", "invite_email_failed", map[string]any{
			"invite_id": invite.ID,
			"error":     err.Error(),
		})
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"client":     client,
		"invite":     invite,
		"token":      invite.Token,
		"invite_url": link,
	})
}

// handleInviteLookup serves the public invite form data. The token is the
// only credential; the response carries just what the form needs.
func (a *API) handleInviteLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	token := strings.Trim(strings.TrimPrefix(r.URL.Path, "/invite/"), "/")
	if token == "" || strings.Contains(token, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	invite, client, err := a.registry.LookupInvite(r.Context(), token)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"client_name":  client.Name,
		"client_email": client.Email,
		"expires_at":   invite.ExpiresAt,
	})
}

func (a *API) handleInvitesAccept(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req acceptInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.registry.AcceptInvite(r.Context(), principalFrom(r), req.Token)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleInviteResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/invites/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "reactivate" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	invite, err := a.registry.ReactivateInvite(r.Context(), principalFrom(r), parts[0])
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invite)
}
