// Package mockhttp builds httptest servers that impersonate the remote
// verifier in tests: JSON routes, FastAPI-style error bodies, bearer
// checks, and request capture for assertions.
package mockhttp
