// Package verifier is the typed HTTP client for the remote verifier:
// credential login, PIN fallback, face enrollment and multi-frame
// liveness verification, and the audit trail. Responses are normalized
// at this boundary; callers never inspect raw HTTP shapes.
package verifier
