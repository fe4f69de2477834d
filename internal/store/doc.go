// Package store persists tripbooker users and their recorded booking
// payments.
//
// Two backends implement Store: PostgresStore for deployments with a
// DATABASE_URL, and MemoryStore for local runs and tests. Users are keyed by
// their verified Google email; payments belong to exactly one user and are
// listed newest first.
package store
