package plan

// DefaultPlans is the built-in catalog seeded into an empty store.
func DefaultPlans() []Plan {
	return []Plan{
		{
			Name:               TierFree,
			DisplayName:        "Free",
			MaxProjects:        1,
			MaxBoards:          1,
			MaxTeams:           1,
			MaxUsersPerCompany: 1,
			MaxTasks:           10,
			MaxOkrs:            1,
			IsActive:           true,
			Currency:           "EUR",
			SortOrder:          0,
			Version:            1,
		},
		{
			Name:               TierFreelancer,
			DisplayName:        "Freelancer",
			MaxProjects:        5,
			MaxBoards:          10,
			MaxTeams:           1,
			MaxUsersPerCompany: 1,
			MaxTasks:           500,
			MaxOkrs:            5,
			HasGanttView:       true,
			IsActive:           true,
			MonthlyPriceCents:  900,
			YearlyPriceCents:   9000,
			Currency:           "EUR",
			SortOrder:          1,
			Version:            1,
		},
		{
			Name:                 TierOrganisation,
			DisplayName:          "Organisation",
			MaxProjects:          25,
			MaxBoards:            50,
			MaxTeams:             5,
			MaxUsersPerCompany:   25,
			MaxTasks:             5000,
			MaxOkrs:              50,
			HasGanttView:         true,
			HasAdvancedReporting: true,
			HasTeamFeatures:      true,
			HasOKRFeatures:       true,
			RequiresCompany:      true,
			IsActive:             true,
			MonthlyPriceCents:    2900,
			YearlyPriceCents:     29000,
			Currency:             "EUR",
			SortOrder:            2,
			Version:              1,
		},
		unlimitedPlan(TierEnterprise, "Enterprise", true, 9900, 99000, 3),
		unlimitedPlan(TierInternal, "Internal", false, 0, 0, 99),
	}
}

func unlimitedPlan(name Tier, display string, requiresCompany bool, monthly, yearly int64, order int) Plan {
	return Plan{
		Name:                 name,
		DisplayName:          display,
		MaxProjects:          Unlimited,
		MaxBoards:            Unlimited,
		MaxTeams:             Unlimited,
		MaxUsersPerCompany:   Unlimited,
		MaxTasks:             Unlimited,
		MaxOkrs:              Unlimited,
		HasGanttView:         true,
		HasAdvancedReporting: true,
		HasAPIAccess:         true,
		HasCustomBranding:    true,
		HasPrioritySupport:   true,
		HasTeamFeatures:      true,
		HasOKRFeatures:       true,
		RequiresCompany:      requiresCompany,
		IsActive:             true,
		MonthlyPriceCents:    monthly,
		YearlyPriceCents:     yearly,
		Currency:             "EUR",
		SortOrder:            order,
		Version:              1,
	}
}

// Fallback returns the conservative caps applied when a tier's plan record
// cannot be found. Every tier falls back to the free caps and no features.
func Fallback(tier Tier) Plan {
	return Plan{
		Name:               tier,
		DisplayName:        string(tier),
		MaxProjects:        1,
		MaxBoards:          1,
		MaxTeams:           1,
		MaxUsersPerCompany: 1,
		MaxTasks:           10,
		MaxOkrs:            1,
	}
}
