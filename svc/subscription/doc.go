// Package subscription runs the subscription lifecycle: switching tiers
// through a payment provider, applying tiers directly when the provider is
// unavailable, admin overrides, provider confirmations and lazy expiry.
//
// Rows move through a fixed status graph:
//
//	none -> pending -> active -> cancelled | expired
//	pending -> failed | cancelled
//	active -> pending
//
// The direct update path revives the user's latest row in place whatever
// its status, so repeating it never adds rows. Writes are compare-and-swap
// on Subscription.Version; a stale write fails with ErrConflict and is
// retried a bounded number of times. At most one row per user is active.
//
// The tier fields on users and company payment records are copies of the
// active row, kept for fast entitlement reads.
package subscription
