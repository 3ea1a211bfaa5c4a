// Package mongo connects to MongoDB with retries and exposes a readiness check.
// The audit trail can mirror entries into a Mongo collection.
package mongo
