package auth

import "time"

var (
	cloud              = SystemConfiguration{Distribution: DistributionCloud}
	cloudProvider      = SystemConfiguration{Distribution: DistributionCloud, AutoTranslateProviderConfigured: true}
	selfHosted         = SystemConfiguration{Distribution: DistributionSelfHosted}
	selfHostedProvider = SystemConfiguration{Distribution: DistributionSelfHosted, AutoTranslateProviderConfigured: true}
)

func membership(id, workspaceID string, role Role, kind MembershipKind) Membership {
	m := Membership{
		ID:          id,
		WorkspaceID: workspaceID,
		Role:        role,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	switch kind {
	case MembershipHuman:
		m.UserID = "user-1"
	case MembershipService:
		m.ServiceID = "svc_" + id
	}
	return m
}

func record(workspaceID string, role Role, kind MembershipKind, plan Plan) MembershipRecord {
	billing := BillingSettings{WorkspaceID: workspaceID, Plan: plan, Status: SubscriptionActive}
	return MembershipRecord{
		Membership: membership("m-"+workspaceID, workspaceID, role, kind),
		Workspace:  Workspace{ID: workspaceID, Key: "key-" + workspaceID, Name: "Workspace " + workspaceID},
		Billing:    &billing,
	}
}

func billingFor(plan Plan) BillingSettings {
	return BillingSettings{WorkspaceID: "ws-1", Plan: plan, Status: SubscriptionActive}
}
