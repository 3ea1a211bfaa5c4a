// Package redis connects to Redis with retries and exposes a readiness check.
// kanbax uses it as the backing store for the plan catalog read cache.
package redis
