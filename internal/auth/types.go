package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Distribution describes how the service is deployed.
type Distribution string

const (
	DistributionCloud      Distribution = "cloud"
	DistributionSelfHosted Distribution = "self-hosted"
)

// ParseDistribution normalizes and validates a distribution mode.
func ParseDistribution(s string) (Distribution, error) {
	d := Distribution(strings.TrimSpace(strings.ToLower(s)))
	switch d {
	case DistributionCloud, DistributionSelfHosted:
		return d, nil
	default:
		return "", fmt.Errorf("%w: unsupported distribution %q", ErrInvalidInput, s)
	}
}

// SystemConfiguration is the process-wide snapshot consulted by access decisions.
// It is a plain value: callers load it once at startup and pass it along.
type SystemConfiguration struct {
	Distribution                    Distribution
	AutoTranslateProviderConfigured bool
}

// Validate reports whether the configuration can drive access decisions.
func (c SystemConfiguration) Validate() error {
	if _, err := ParseDistribution(string(c.Distribution)); err != nil {
		return err
	}
	return nil
}

// Role is the role a membership holds inside a workspace.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleBiller Role = "biller"
	RoleMember Role = "member"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleBiller, RoleMember}
}

// Known reports whether r belongs to the closed role set.
func (r Role) Known() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleBiller, RoleMember:
		return true
	default:
		return false
	}
}

// ParseRole normalizes s into a known role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(strings.ToLower(s)))
	if !r.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// MembershipKind tells whether a membership belongs to a person or a service account.
type MembershipKind string

const (
	MembershipHuman   MembershipKind = "human"
	MembershipService MembershipKind = "service"
)

// Plan is a workspace subscription plan.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Normalize lowercases and trims a plan written by the billing integration.
func (p Plan) Normalize() Plan {
	return Plan(strings.TrimSpace(strings.ToLower(string(p))))
}

// Paying reports whether the plan is anything other than the free tier.
// Spelling variants of "free" and an empty plan count as free.
func (p Plan) Paying() bool {
	n := p.Normalize()
	return n != "" && n != PlanFree
}

// SubscriptionStatus mirrors the billing provider's subscription state.
type SubscriptionStatus string

const (
	SubscriptionActive          SubscriptionStatus = "active"
	SubscriptionInactive        SubscriptionStatus = "inactive"
	SubscriptionPaymentRequired SubscriptionStatus = "payment_required"
)

// User is a human identity.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Workspace is a tenant.
type Workspace struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// BillingSettings holds the subscription state of a workspace.
type BillingSettings struct {
	WorkspaceID string             `json:"workspace_id"`
	Plan        Plan               `json:"plan"`
	Status      SubscriptionStatus `json:"status"`
}

// DefaultBillingSettings returns the settings a new workspace starts with.
func DefaultBillingSettings(workspaceID string) BillingSettings {
	return BillingSettings{WorkspaceID: workspaceID, Plan: PlanFree, Status: SubscriptionActive}
}

// Membership joins a principal to a workspace. Exactly one of UserID and
// ServiceID is set.
type Membership struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	Role        Role       `json:"role"`
	UserID      string     `json:"user_id,omitempty"`
	ServiceID   string     `json:"service_id,omitempty"`
	BlockedAt   *time.Time `json:"blocked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Kind derives the membership kind from its binding.
func (m Membership) Kind() (MembershipKind, error) {
	hasUser := strings.TrimSpace(m.UserID) != ""
	hasService := strings.TrimSpace(m.ServiceID) != ""
	switch {
	case hasUser && !hasService:
		return MembershipHuman, nil
	case hasService && !hasUser:
		return MembershipService, nil
	default:
		return "", fmt.Errorf("%w: membership %s has user=%t service=%t", ErrInvalidPrincipal, m.ID, hasUser, hasService)
	}
}

// Blocked reports whether the membership was soft-deleted.
func (m Membership) Blocked() bool {
	return m.BlockedAt != nil
}

// MembershipRecord is a membership loaded together with its workspace and
// that workspace's billing settings. Billing is nil when the row is missing.
type MembershipRecord struct {
	Membership Membership
	Workspace  Workspace
	Billing    *BillingSettings
}

// ServiceKey is a hashed API key bound to one service membership.
type ServiceKey struct {
	ID         string
	SecretHash string
	CreatedAt  time.Time
	Record     MembershipRecord
}

// Limit is a usage cap. Unlimited means no cap.
type Limit int

// Unlimited marks an unbounded limit.
const Unlimited Limit = -1

// Bounded reports whether the limit caps usage.
func (l Limit) Bounded() bool {
	return l >= 0
}

// Allows reports whether count items fit under the limit.
func (l Limit) Allows(count int) bool {
	return !l.Bounded() || count <= int(l)
}

func (l Limit) String() string {
	if !l.Bounded() {
		return "unlimited"
	}
	return strconv.Itoa(int(l))
}

// MarshalJSON encodes unbounded limits as null.
func (l Limit) MarshalJSON() ([]byte, error) {
	if !l.Bounded() {
		return []byte("null"), nil
	}
	return json.Marshal(int(l))
}

// Limits are the usage caps of a workspace.
type Limits struct {
	ProjectsCount Limit `json:"projects_count"`
	PhrasesCount  Limit `json:"phrases_count"`
}

// Free-plan caps for cloud workspaces.
const (
	FreePlanProjectsLimit Limit = 1
	FreePlanPhrasesLimit  Limit = 1000
)

// WorkspaceDetails is the public projection of a workspace.
type WorkspaceDetails struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}
