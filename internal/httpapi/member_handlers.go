package httpapi

import (
	"net/http"

	"langhub.io/internal/audit"
	"langhub.io/internal/auth"
)

type changeRoleRequest struct {
	Role string `json:"role"`
}

type issueKeyRequest struct {
	Role string `json:"role"`
}

type issueKeyResponse struct {
	Membership auth.Membership `json:"membership"`
	KeyID      string          `json:"key_id"`
	APIKey     string          `json:"api_key"`
}

func (a *API) handleListMembers(w http.ResponseWriter, r *http.Request, access *auth.WorkspaceAccess) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.members == nil {
		writeError(w, r, http.StatusServiceUnavailable, "member management unavailable")
		return
	}
	members, err := a.members.ListMembers(r.Context(), access)
	if err != nil {
		a.writeAccessError(w, r, err)
		return
	}
	if members == nil {
		members = []auth.Membership{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": members})
}

func (a *API) handleChangeRole(w http.ResponseWriter, r *http.Request, access *auth.WorkspaceAccess, membershipID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if a.members == nil {
		writeError(w, r, http.StatusServiceUnavailable, "member management unavailable")
		return
	}
	if err := access.RequireAbility(auth.AbilityMembersManage); err != nil {
		a.writeAccessError(w, r, err)
		return
	}
	var req changeRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	m, err := a.members.ChangeRole(r.Context(), access, membershipID, req.Role)
	if err != nil {
		a.writeAccessError(w, r, err)
		return
	}
	a.audit(r.Context(), audit.EventRoleChanged, map[string]any{
		"workspace_id":  access.WorkspaceID(),
		"membership_id": m.ID,
		"role":          string(m.Role),
	})
	writeJSON(w, http.StatusOK, m)
}

func (a *API) handleBlockMember(w http.ResponseWriter, r *http.Request, access *auth.WorkspaceAccess, membershipID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.members == nil {
		writeError(w, r, http.StatusServiceUnavailable, "member management unavailable")
		return
	}
	m, err := a.members.BlockMember(r.Context(), access, membershipID)
	if err != nil {
		a.writeAccessError(w, r, err)
		return
	}
	a.audit(r.Context(), audit.EventMembershipBlocked, map[string]any{
		"workspace_id":  access.WorkspaceID(),
		"membership_id": m.ID,
	})
	writeJSON(w, http.StatusOK, m)
}

func (a *API) handleIssueServiceKey(w http.ResponseWriter, r *http.Request, access *auth.WorkspaceAccess) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.members == nil {
		writeError(w, r, http.StatusServiceUnavailable, "member management unavailable")
		return
	}
	if err := access.RequireAbility(auth.AbilityAPIKeysManage); err != nil {
		a.writeAccessError(w, r, err)
		return
	}
	var req issueKeyRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	m, key, err := a.members.IssueServiceKey(r.Context(), access, req.Role)
	if err != nil {
		a.writeAccessError(w, r, err)
		return
	}
	a.audit(r.Context(), audit.EventServiceKeyIssued, map[string]any{
		"workspace_id":       access.WorkspaceID(),
		"membership_id":      m.ID,
		"service_account_id": m.ServiceID,
		"key_id":             key.KeyID,
	})
	writeJSON(w, http.StatusCreated, issueKeyResponse{Membership: m, KeyID: key.KeyID, APIKey: key.Plaintext})
}
