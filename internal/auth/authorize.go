package auth

// ResolveAbilities computes the abilities a membership holds. Every rule only
// adds abilities. The second result is false when the membership role is outside
// the closed set; such memberships keep the baseline abilities only.
func ResolveAbilities(sys SystemConfiguration, m Membership, billing BillingSettings) (AbilitySet, bool) {
	var granted []Ability
	grant := func(abilities ...Ability) {
		granted = append(granted, abilities...)
	}

	grant(AbilityWorkspaceRead)
	if kind, err := m.Kind(); err == nil && kind == MembershipHuman {
		grant(AbilityWorkspaceWrite)
	}

	if !m.Role.Known() {
		return NewAbilitySet(granted...), false
	}

	if sys.Distribution == DistributionCloud && (m.Role == RoleOwner || m.Role == RoleBiller) {
		grant(AbilityBillingManage)
	}
	if m.Role == RoleOwner {
		grant(ownerAbilities...)
	}
	if sys.AutoTranslateProviderConfigured {
		switch sys.Distribution {
		case DistributionSelfHosted:
			grant(AbilityAutoTranslationUse)
		case DistributionCloud:
			// Subscription status is deliberately not consulted.
			if billing.Plan.Paying() {
				grant(AbilityAutoTranslationUse)
			}
		}
	}
	return NewAbilitySet(granted...), true
}

// ResolveLimits computes the usage caps of a workspace.
func ResolveLimits(sys SystemConfiguration, billing BillingSettings) Limits {
	if sys.Distribution == DistributionCloud && !billing.Plan.Paying() {
		return Limits{ProjectsCount: FreePlanProjectsLimit, PhrasesCount: FreePlanPhrasesLimit}
	}
	return Limits{ProjectsCount: Unlimited, PhrasesCount: Unlimited}
}
