// Package store provides client-local durable storage for the biometric
// auth client: the persisted credential record and a local audit trail,
// backed by a SQLite database in the user's data directory.
package store
