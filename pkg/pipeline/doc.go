// Package pipeline wraps an HTTP client with the outbound-request
// discipline every call to the remote verifier must follow: attach the
// current bearer credential, and on an unauthorized response run at
// most one concurrent refresh cycle, queueing every other caller that
// hits 401 while it is in flight and retrying each of them exactly once
// with the refreshed credential.
package pipeline
