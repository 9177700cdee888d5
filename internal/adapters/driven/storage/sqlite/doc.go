// Package sqlite provides the SQLite-backed persistence for casebrief.
//
// The adapter uses modernc.org/sqlite, a pure Go driver, so the binary
// cross-compiles without CGO. One database file backs three stores:
//
//   - CredentialStore: per-user service credentials
//   - JobStore: generation jobs and their results
//   - SchedulerStore: background task state and history
//
// # Schema
//
// Versioned migrations live in migrations/ as .up.sql and .down.sql pairs
// and are embedded at compile time.
//
// # Data Location
//
// By default, the database is stored at ~/.casebrief/data/casebrief.db
package sqlite
