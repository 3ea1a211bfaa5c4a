// Package entity holds the kanbax domain records (users, companies, teams,
// projects, boards, objectives, tasks) and the repository contract the
// permission and entitlement layers read through.
//
// Two implementations ship with the package: MemoryStore for tests and local
// development, and PGStore backed by database/sql over the pgx stdlib driver.
// Lookups of missing rows return ErrNotFound.
package entity
