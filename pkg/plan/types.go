package plan

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Tier is a plan name.
type Tier string

const (
	TierFree         Tier = "free"
	TierFreelancer   Tier = "freelancer"
	TierOrganisation Tier = "organisation"
	TierEnterprise   Tier = "enterprise"
	// TierInternal is the platform operator's own tier. It is assignable only
	// by a platform admin and never listed publicly.
	TierInternal Tier = "internal"
)

// tierAliases maps legacy names onto current tiers.
var tierAliases = map[string]Tier{
	"kanbax":       TierInternal,
	"organization": TierOrganisation,
}

// NormalizeTier case-folds s and resolves legacy aliases. Unknown names are
// returned folded but otherwise unchanged.
func NormalizeTier(s string) Tier {
	folded := cases.Fold().String(strings.TrimSpace(s))
	if t, ok := tierAliases[folded]; ok {
		return t
	}
	return Tier(folded)
}

// IsKnown reports whether t is one of the built-in tiers.
func (t Tier) IsKnown() bool {
	switch t {
	case TierFree, TierFreelancer, TierOrganisation, TierEnterprise, TierInternal:
		return true
	}
	return false
}

// BillingCycle is the renewal period of a paid subscription.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// NormalizeBillingCycle maps any case or padding variant of "yearly" to
// CycleYearly and everything else, including the empty string, to
// CycleMonthly.
func NormalizeBillingCycle(s string) BillingCycle {
	if cases.Fold().String(strings.TrimSpace(s)) == string(CycleYearly) {
		return CycleYearly
	}
	return CycleMonthly
}

const (
	monthlyPeriod = 30 * 24 * time.Hour
	yearlyPeriod  = 365 * 24 * time.Hour
)

// ExpiresAt returns when a subscription bought at now lapses. The free and
// internal tiers never expire.
func ExpiresAt(tier Tier, cycle BillingCycle, now time.Time) *time.Time {
	if tier == TierFree || tier == TierInternal {
		return nil
	}
	d := monthlyPeriod
	if cycle == CycleYearly {
		d = yearlyPeriod
	}
	t := now.Add(d)
	return &t
}

// Resource is a capped resource kind.
type Resource string

const (
	ResourceProjects Resource = "projects"
	ResourceBoards   Resource = "boards"
	ResourceTeams    Resource = "teams"
	ResourceUsers    Resource = "users"
	ResourceTasks    Resource = "tasks"
	ResourceOKRs     Resource = "okrs"
)

// Resources lists every capped resource in display order.
var Resources = []Resource{ResourceProjects, ResourceBoards, ResourceTeams, ResourceUsers, ResourceTasks, ResourceOKRs}

// Feature is a boolean plan capability.
type Feature string

const (
	FeatureGanttView         Feature = "gantt_view"
	FeatureAdvancedReporting Feature = "advanced_reporting"
	FeatureAPIAccess         Feature = "api_access"
	FeatureCustomBranding    Feature = "custom_branding"
	FeaturePrioritySupport   Feature = "priority_support"
	FeatureTeamFeatures      Feature = "team_features"
	FeatureOKRFeatures       Feature = "okr_features"
)

// Unlimited is the sentinel cap. Any value at or above it is unlimited.
const Unlimited int64 = 999999

// IsUnlimited reports whether a cap means "no limit".
func IsUnlimited(n int64) bool {
	return n >= Unlimited
}
