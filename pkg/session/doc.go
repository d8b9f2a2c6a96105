// Package session owns the in-memory authentication session and its
// durable projection. It is the single writer of session state: the
// request pipeline, the route guard, and the login flows all read
// through Snapshot and mutate through this package's operations.
//
// A credential is treated as an opaque bearer token for transport. When
// it happens to be a three-part JWT, its payload is decoded (never
// verified) to derive the subject id and expiry for display and local
// expiry checks. That decode is a convenience read, not a security
// check; only the remote verifier can accept or reject a credential.
package session
