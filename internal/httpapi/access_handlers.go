package httpapi

import (
	"net/http"
	"strings"

	"langhub.io/internal/audit"
	"langhub.io/internal/auth"
)

type meResponse struct {
	Kind               auth.PrincipalKind      `json:"kind"`
	UserID             string                  `json:"user_id,omitempty"`
	Email              string                  `json:"email,omitempty"`
	ServiceAccountID   string                  `json:"service_account_id,omitempty"`
	DefaultWorkspaceID string                  `json:"default_workspace_id,omitempty"`
	Workspaces         []auth.WorkspaceDetails `json:"workspaces"`
}

type accessResponse struct {
	Workspace      auth.WorkspaceDetails `json:"workspace"`
	AccountID      string                `json:"account_id"`
	Role           auth.Role             `json:"role"`
	RoleRecognized bool                  `json:"role_recognized"`
	Abilities      auth.AbilitySet       `json:"abilities"`
	Limits         auth.Limits           `json:"limits"`
}

type createWorkspaceRequest struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	req, err := requesterFrom(r)
	if err != nil {
		a.writeAccessError(w, r, err)
		return
	}

	resp := meResponse{Kind: req.Kind(), Workspaces: req.Workspaces()}
	switch req.Kind() {
	case auth.PrincipalHuman:
		resp.UserID, _ = req.UserID()
		resp.Email, _ = req.UserEmail()
	case auth.PrincipalService:
		resp.ServiceAccountID, _ = req.ServiceAccountID()
	}
	// A human with no memberships simply has no default workspace.
	if def, err := req.DefaultWorkspaceID(); err == nil {
		resp.DefaultWorkspaceID = def
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.members == nil {
		writeError(w, r, http.StatusServiceUnavailable, "member management unavailable")
		return
	}
	req, err := requesterFrom(r)
	if err != nil {
		a.writeAccessError(w, r, err)
		return
	}
	var body createWorkspaceRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := a.members.CreateWorkspace(r.Context(), req, body.Key, body.Name)
	if err != nil {
		a.writeAccessError(w, r, err)
		return
	}
	a.audit(r.Context(), audit.EventWorkspaceCreated, map[string]any{
		"workspace_id":  rec.Workspace.ID,
		"workspace_key": rec.Workspace.Key,
	})
	w.Header().Set("Location", "/v1/workspaces/"+rec.Workspace.ID+"/access")
	writeJSON(w, http.StatusCreated, map[string]any{
		"workspace":     rec.Workspace,
		"membership_id": rec.Membership.ID,
		"role":          rec.Membership.Role,
	})
}

// handleWorkspaceScoped routes /v1/workspaces/{id}/... after resolving the
// requester's access to {id}.
func (a *API) handleWorkspaceScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/workspaces/"), "/")
	parts := strings.Split(path, "/")
	if path == "" || len(parts) < 2 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	req, err := requesterFrom(r)
	if err != nil {
		a.writeAccessError(w, r, err)
		return
	}
	access, err := req.WorkspaceAccess(parts[0])
	if err != nil {
		a.writeAccessError(w, r, err)
		return
	}

	switch {
	case parts[1] == "access" && len(parts) == 2:
		a.handleAccess(w, r, access)
	case parts[1] == "abilities" && len(parts) == 3:
		a.handleAbilityCheck(w, r, access, parts[2])
	case parts[1] == "members" && len(parts) == 2:
		a.handleListMembers(w, r, access)
	case parts[1] == "members" && len(parts) == 4 && parts[3] == "role":
		a.handleChangeRole(w, r, access, parts[2])
	case parts[1] == "members" && len(parts) == 4 && parts[3] == "block":
		a.handleBlockMember(w, r, access, parts[2])
	case parts[1] == "api-keys" && len(parts) == 2:
		a.handleIssueServiceKey(w, r, access)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleAccess(w http.ResponseWriter, r *http.Request, access *auth.WorkspaceAccess) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, accessResponse{
		Workspace:      access.WorkspaceDetails(),
		AccountID:      access.AccountID(),
		Role:           access.Role(),
		RoleRecognized: access.RoleRecognized(),
		Abilities:      access.Abilities(),
		Limits:         access.Limits(),
	})
}

func (a *API) handleAbilityCheck(w http.ResponseWriter, r *http.Request, access *auth.WorkspaceAccess, raw string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	ability, err := auth.ParseAbility(raw)
	if err != nil {
		a.writeAccessError(w, r, err)
		return
	}
	if err := access.RequireAbility(ability); err != nil {
		a.writeAccessError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
