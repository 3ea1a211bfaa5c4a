package plan

import "errors"

var (
	ErrPlanNotFound   = errors.New("plan: not found")
	ErrInvalidPlan    = errors.New("plan: invalid definition")
	ErrDuplicatePlan  = errors.New("plan: duplicate name")
	ErrFailedToSeed   = errors.New("plan: failed to seed catalog")
	ErrFailedToLoad   = errors.New("plan: failed to load catalog")
	ErrUnknownFeature = errors.New("plan: unknown feature")
)
