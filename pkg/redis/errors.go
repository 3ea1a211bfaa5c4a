package redis

import "errors"

// Raised only when the plan cache is enabled.
var (
	ErrEmptyConnectionURL = errors.New("redis: REDIS_URL is required when the plan cache is enabled")
	ErrInvalidURL         = errors.New("redis: invalid plan cache url")
	ErrNotReady           = errors.New("redis: plan cache did not answer before the connect deadline")
	ErrPingFailed         = errors.New("redis: plan cache ping failed")
)
