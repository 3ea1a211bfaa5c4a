package plan

// Plan is one catalog entry. Records are immutable per Version; a change in
// caps or price is published as a new version.
type Plan struct {
	ID          int64  `json:"id" yaml:"-"`
	Name        Tier   `json:"name" yaml:"name"`
	DisplayName string `json:"displayName" yaml:"display_name"`

	MaxProjects        int64 `json:"maxProjects" yaml:"max_projects"`
	MaxBoards          int64 `json:"maxBoards" yaml:"max_boards"`
	MaxTeams           int64 `json:"maxTeams" yaml:"max_teams"`
	MaxUsersPerCompany int64 `json:"maxUsersPerCompany" yaml:"max_users_per_company"`
	MaxTasks           int64 `json:"maxTasks" yaml:"max_tasks"`
	MaxOkrs            int64 `json:"maxOkrs" yaml:"max_okrs"`

	HasGanttView         bool `json:"hasGanttView" yaml:"gantt_view"`
	HasAdvancedReporting bool `json:"hasAdvancedReporting" yaml:"advanced_reporting"`
	HasAPIAccess         bool `json:"hasApiAccess" yaml:"api_access"`
	HasCustomBranding    bool `json:"hasCustomBranding" yaml:"custom_branding"`
	HasPrioritySupport   bool `json:"hasPrioritySupport" yaml:"priority_support"`
	HasTeamFeatures      bool `json:"hasTeamFeatures" yaml:"team_features"`
	HasOKRFeatures       bool `json:"hasOkrFeatures" yaml:"okr_features"`

	RequiresCompany bool `json:"requiresCompany" yaml:"requires_company"`
	IsActive        bool `json:"isActive" yaml:"is_active"`

	MonthlyPriceCents int64  `json:"monthlyPriceCents" yaml:"monthly_price_cents"`
	YearlyPriceCents  int64  `json:"yearlyPriceCents" yaml:"yearly_price_cents"`
	Currency          string `json:"currency" yaml:"currency"`
	MonthlyPriceID    string `json:"-" yaml:"monthly_price_id"`
	YearlyPriceID     string `json:"-" yaml:"yearly_price_id"`

	SortOrder int `json:"sortOrder" yaml:"sort_order"`
	Version   int `json:"version" yaml:"version"`
}

// Limit returns the cap for res. ok is false for an unknown resource.
func (p Plan) Limit(res Resource) (limit int64, ok bool) {
	switch res {
	case ResourceProjects:
		return p.MaxProjects, true
	case ResourceBoards:
		return p.MaxBoards, true
	case ResourceTeams:
		return p.MaxTeams, true
	case ResourceUsers:
		return p.MaxUsersPerCompany, true
	case ResourceTasks:
		return p.MaxTasks, true
	case ResourceOKRs:
		return p.MaxOkrs, true
	}
	return 0, false
}

// Has reports whether the plan enables f. Unknown features are never enabled.
func (p Plan) Has(f Feature) bool {
	switch f {
	case FeatureGanttView:
		return p.HasGanttView
	case FeatureAdvancedReporting:
		return p.HasAdvancedReporting
	case FeatureAPIAccess:
		return p.HasAPIAccess
	case FeatureCustomBranding:
		return p.HasCustomBranding
	case FeaturePrioritySupport:
		return p.HasPrioritySupport
	case FeatureTeamFeatures:
		return p.HasTeamFeatures
	case FeatureOKRFeatures:
		return p.HasOKRFeatures
	}
	return false
}

// Features lists the enabled features.
func (p Plan) Features() []Feature {
	all := []Feature{
		FeatureGanttView, FeatureAdvancedReporting, FeatureAPIAccess, FeatureCustomBranding,
		FeaturePrioritySupport, FeatureTeamFeatures, FeatureOKRFeatures,
	}
	out := make([]Feature, 0, len(all))
	for _, f := range all {
		if p.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Price returns the amount in minor units for the cycle.
func (p Plan) Price(cycle BillingCycle) int64 {
	if cycle == CycleYearly {
		return p.YearlyPriceCents
	}
	return p.MonthlyPriceCents
}

// PriceID returns the provider catalog price id for the cycle, if any.
func (p Plan) PriceID(cycle BillingCycle) string {
	if cycle == CycleYearly {
		return p.YearlyPriceID
	}
	return p.MonthlyPriceID
}

// IsFree reports whether subscribing needs no payment.
func (p Plan) IsFree() bool {
	return p.Name == TierFree || (p.MonthlyPriceCents == 0 && p.YearlyPriceCents == 0)
}

// Validate checks the plan for obviously broken definitions.
func (p Plan) Validate() error {
	if p.Name == "" {
		return ErrInvalidPlan
	}
	for _, res := range Resources {
		if n, _ := p.Limit(res); n < 0 {
			return ErrInvalidPlan
		}
	}
	if p.MonthlyPriceCents < 0 || p.YearlyPriceCents < 0 {
		return ErrInvalidPlan
	}
	return nil
}
