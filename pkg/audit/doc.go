// Package audit records who changed what in kanbax and serves those records
// back to admins and to each user's activity feed.
//
// An Entry carries a closed union of Details types, one per Action. The JSON
// form wraps them in an envelope keyed by the action:
//
//	{"action": "subscription.tier_changed", "details": {"oldTier": "free", ...}}
//
// Trail is the entry point. Append never fails the caller; storage errors are
// logged and counted on kanbax_audit_append_failures_total. Listings are
// newest first and capped at DefaultListLimit.
//
// Storages:
//
//   - MemoryStorage for tests and single-node setups
//   - PGStorage on the append-only audit_log table
//   - MongoStorage and OpenSearchStorage as document stores
//   - MultiStorage to mirror writes from a primary into the others
//   - AsyncWriter to batch writes off the request path
//
// S3Archiver exports a company's trail as NDJSON.
package audit
