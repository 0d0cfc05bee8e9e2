package auth

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Ability is a capability a principal holds inside one workspace.
type Ability string

const (
	AbilityWorkspaceRead             Ability = "workspace:read"
	AbilityWorkspaceWrite            Ability = "workspace:write"
	AbilityBillingManage             Ability = "billing:manage"
	AbilityMembersManage             Ability = "members:manage"
	AbilityLanguagesManage           Ability = "languages:manage"
	AbilityAPIKeysManage             Ability = "api_keys:manage"
	AbilityProjectDestinationsManage Ability = "projects:destinations:manage"
	AbilityAutoTranslationUse        Ability = "auto_translation:use"
)

// BuiltinAbilities is the closed ability catalogue with human descriptions.
var BuiltinAbilities = []struct {
	Ability     Ability
	Description string
}{
	{AbilityWorkspaceRead, "Read workspace content"},
	{AbilityWorkspaceWrite, "Edit phrases, translations and glossaries"},
	{AbilityBillingManage, "Manage the workspace subscription"},
	{AbilityMembersManage, "Invite, re-role and block members"},
	{AbilityLanguagesManage, "Add and remove workspace languages"},
	{AbilityAPIKeysManage, "Issue service API keys"},
	{AbilityProjectDestinationsManage, "Configure CDN, S3 and GitHub destinations"},
	{AbilityAutoTranslationUse, "Use AI auto-translation"},
}

// ownerAbilities are granted to owners only.
var ownerAbilities = []Ability{
	AbilityMembersManage,
	AbilityLanguagesManage,
	AbilityAPIKeysManage,
	AbilityProjectDestinationsManage,
}

// Known reports whether a belongs to the catalogue.
func (a Ability) Known() bool {
	for _, b := range BuiltinAbilities {
		if b.Ability == a {
			return true
		}
	}
	return false
}

// ParseAbility validates s against the catalogue.
func ParseAbility(s string) (Ability, error) {
	a := Ability(strings.TrimSpace(strings.ToLower(s)))
	if !a.Known() {
		return "", fmt.Errorf("%w: unknown ability %q", ErrInvalidInput, s)
	}
	return a, nil
}

// AbilitySet is an immutable set of abilities.
type AbilitySet struct {
	m map[Ability]struct{}
}

// NewAbilitySet builds a set from the given abilities; duplicates collapse.
func NewAbilitySet(abilities ...Ability) AbilitySet {
	m := make(map[Ability]struct{}, len(abilities))
	for _, a := range abilities {
		m[a] = struct{}{}
	}
	return AbilitySet{m: m}
}

// Has reports whether a is in the set.
func (s AbilitySet) Has(a Ability) bool {
	_, ok := s.m[a]
	return ok
}

// Len returns the number of abilities.
func (s AbilitySet) Len() int { return len(s.m) }

// Contains reports whether every ability of other is also in s.
func (s AbilitySet) Contains(other AbilitySet) bool {
	for a := range other.m {
		if !s.Has(a) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold the same abilities.
func (s AbilitySet) Equal(other AbilitySet) bool {
	return s.Len() == other.Len() && s.Contains(other)
}

// Slice returns the abilities sorted by name.
func (s AbilitySet) Slice() []Ability {
	out := make([]Ability, 0, len(s.m))
	for a := range s.m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted ability tags.
func (s AbilitySet) Strings() []string {
	abilities := s.Slice()
	out := make([]string, len(abilities))
	for i, a := range abilities {
		out[i] = string(a)
	}
	return out
}

func (s AbilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}
