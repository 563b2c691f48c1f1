// Package store is the GORM-backed implementation of the persistence
// interfaces in internal/domain.
//
// Postgres backs the server; tests run against in-memory SQLite. Status
// transitions are checked inside a transaction so a record can never be moved
// out of a terminal state, whatever order concurrent updates arrive in.
package store
