package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"langhub.io/internal/obs"
)

// Requester is the per-request view of a resolved principal. Services use it to
// learn who is acting and to obtain a WorkspaceAccess for a target workspace.
type Requester struct {
	principal Principal
	system    SystemConfiguration
	logger    logrus.FieldLogger
}

// RequesterOption configures a Requester.
type RequesterOption func(*Requester)

// WithLogger overrides the logger used for unknown-role and invalid-state reports.
func WithLogger(logger logrus.FieldLogger) RequesterOption {
	return func(r *Requester) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRequester wraps a principal resolved for the current request.
func NewRequester(p Principal, sys SystemConfiguration, opts ...RequesterOption) (*Requester, error) {
	switch p.kind {
	case PrincipalHuman, PrincipalService:
	default:
		return nil, fmt.Errorf("%w: unresolved principal", ErrInvalidPrincipal)
	}
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	r := &Requester{principal: p, system: sys, logger: obs.Logger()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Requester) Kind() PrincipalKind { return r.principal.kind }

// UserID returns the user id of a human requester and ErrNotApplicable for a
// service requester.
func (r *Requester) UserID() (string, error) {
	switch r.principal.kind {
	case PrincipalHuman:
		return r.principal.user.ID, nil
	case PrincipalService:
		return "", fmt.Errorf("%w: service accounts have no user id", ErrNotApplicable)
	default:
		return "", ErrInvalidPrincipal
	}
}

// UserEmail returns the email of a human requester and ErrNotApplicable for a
// service requester.
func (r *Requester) UserEmail() (string, error) {
	switch r.principal.kind {
	case PrincipalHuman:
		return r.principal.user.Email, nil
	case PrincipalService:
		return "", fmt.Errorf("%w: service accounts have no email", ErrNotApplicable)
	default:
		return "", ErrInvalidPrincipal
	}
}

// ServiceAccountID returns the service id of a service requester.
func (r *Requester) ServiceAccountID() (string, error) {
	switch r.principal.kind {
	case PrincipalService:
		return r.principal.service.Membership.ServiceID, nil
	case PrincipalHuman:
		return "", fmt.Errorf("%w: users are not service accounts", ErrNotApplicable)
	default:
		return "", ErrInvalidPrincipal
	}
}

// DefaultWorkspaceID is the workspace used when a request names none: the first
// membership of a human, or the bound workspace of a service account.
func (r *Requester) DefaultWorkspaceID() (string, error) {
	switch r.principal.kind {
	case PrincipalHuman:
		if len(r.principal.memberships) == 0 {
			return "", ErrNoWorkspaceAccess
		}
		return r.principal.memberships[0].Workspace.ID, nil
	case PrincipalService:
		return r.principal.service.Workspace.ID, nil
	default:
		return "", ErrInvalidPrincipal
	}
}

// Workspaces lists the workspaces the requester belongs to, default first.
func (r *Requester) Workspaces() []WorkspaceDetails {
	var records []MembershipRecord
	switch r.principal.kind {
	case PrincipalHuman:
		records = r.principal.memberships
	case PrincipalService:
		records = []MembershipRecord{r.principal.service}
	}
	out := make([]WorkspaceDetails, 0, len(records))
	for _, rec := range records {
		out = append(out, WorkspaceDetails{ID: rec.Workspace.ID, Key: rec.Workspace.Key, Name: rec.Workspace.Name})
	}
	return out
}

// WorkspaceAccess returns the access the requester holds in workspaceID. It
// fails with ErrForbidden when the requester has no membership there and with
// ErrInvalidState when the workspace data is inconsistent.
func (r *Requester) WorkspaceAccess(workspaceID string) (*WorkspaceAccess, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	rec, ok := r.membershipFor(workspaceID)
	if !ok {
		obs.ObserveAccessCheck(obs.AccessForbidden)
		return nil, forbiddenWorkspace(workspaceID)
	}
	access, err := NewWorkspaceAccess(r.system, rec)
	if err != nil {
		if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrInvalidPrincipal) {
			obs.ObserveAccessCheck(obs.AccessInvalidState)
			r.logger.WithFields(r.LoggingAttributes()).
				WithField("workspace_id", workspaceID).
				WithError(err).
				Error("workspace access data is inconsistent")
		}
		return nil, err
	}
	if !access.RoleRecognized() {
		obs.ObserveUnknownRole()
		r.logger.WithFields(r.LoggingAttributes()).
			WithField("workspace_id", workspaceID).
			WithField("role", string(access.Role())).
			Warn("unknown membership role, granting baseline abilities")
	}
	obs.ObserveAccessCheck(obs.AccessGranted)
	return access, nil
}

func (r *Requester) membershipFor(workspaceID string) (MembershipRecord, bool) {
	if workspaceID == "" {
		return MembershipRecord{}, false
	}
	switch r.principal.kind {
	case PrincipalHuman:
		for _, rec := range r.principal.memberships {
			if rec.Workspace.ID == workspaceID {
				return rec, true
			}
		}
	case PrincipalService:
		if r.principal.service.Workspace.ID == workspaceID {
			return r.principal.service, true
		}
	}
	return MembershipRecord{}, false
}

// LoggingAttributes identifies the requester in logs. It never includes secrets.
func (r *Requester) LoggingAttributes() logrus.Fields {
	switch r.principal.kind {
	case PrincipalHuman:
		return logrus.Fields{"requesterType": string(PrincipalHuman), "userId": r.principal.user.ID}
	case PrincipalService:
		return logrus.Fields{"requesterType": string(PrincipalService), "serviceAccountId": r.principal.service.Membership.ServiceID}
	default:
		return logrus.Fields{"requesterType": "unknown"}
	}
}
