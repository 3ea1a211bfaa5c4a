// Package plan is the subscription plan catalog: tier names, per-resource
// caps, feature flags and prices.
//
// A cap at or above Unlimited (999999) means "no limit"; IsUnlimited is the
// only test callers should use. The internal tier is never part of a public
// listing.
//
// Plans live in a Store (memory or Postgres), optionally fronted by a Cache
// (Redis). Seed inserts the default catalog, or one loaded from YAML, when
// the store is empty.
package plan
