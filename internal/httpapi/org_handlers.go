package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"lexvault.org/internal/registry"
)

type createOrgRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (a *API) handleOrgs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req createOrgRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	org, err := a.registry.RegisterFirm(r.Context(), principalFrom(r), req.Name, req.Slug)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/orgs/%s", org.ID))
	writeJSON(w, http.StatusCreated, org)
}

func (a *API) handleOrgResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/orgs/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "members" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role := registry.MemberRole(strings.ToUpper(strings.TrimSpace(req.Role)))
	member, err := a.registry.AddMember(r.Context(), principalFrom(r), parts[0], req.UserID, role)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}
