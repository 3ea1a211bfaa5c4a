// Package pg bootstraps the Postgres layer: Connect opens a pgx pool with
// retries, Migrate applies the embedded goose migrations (see the migrations
// sub-package), OpenDB bridges the pool to database/sql for the stores, and
// Healthcheck reports readiness only once the schema has been migrated.
//
// IsNotFoundError, IsDuplicateKeyError and IsForeignKeyViolationError classify
// driver errors so stores can map them onto their own sentinels.
package pg
