package verifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrInsufficientFrames is returned when a liveness submission carries
// fewer than the two mandatory frames. Caught before any network call.
var ErrInsufficientFrames = errors.New("verifier: liveness submission needs at least 2 frames")

// APIError is a failure response from the verifier, normalized from the
// {"detail": ...} error bodies it emits.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("verifier returned %d", e.StatusCode)
	}
	return fmt.Sprintf("verifier returned %d: %s", e.StatusCode, e.Detail)
}

// IsUnauthorized reports a 401: bad credentials or a wrong PIN.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsLocked reports a 403: a temporary lockout, distinct from a plain
// wrong PIN. Detail carries any server-provided cooldown hint and must
// be surfaced verbatim.
func (e *APIError) IsLocked() bool {
	return e.StatusCode == http.StatusForbidden
}

// IsNotFound reports a 404, e.g. verifying a subject that never
// enrolled a face.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// parseAPIError builds an APIError from a non-2xx response. The body is
// decoded leniently: FastAPI puts human-readable text under "detail",
// other stacks under "message" or "error".
func parseAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}

	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Err     string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.Detail != "":
			apiErr.Detail = payload.Detail
		case payload.Message != "":
			apiErr.Detail = payload.Message
		case payload.Err != "":
			apiErr.Detail = payload.Err
		}
	}
	return apiErr
}

// AsAPIError unwraps err to an *APIError if one is in the chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
