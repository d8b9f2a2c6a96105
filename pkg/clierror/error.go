package clierror

import (
	"encoding/json"
	"fmt"
	"os"
)

// Exit codes, grouped by failure class so scripts can branch on them.
const (
	ExitSuccess  = 0 // Operation completed successfully
	ExitGeneral  = 1 // Unknown/unhandled error
	ExitAuth     = 2 // Not authenticated, credential expired, bad password
	ExitLiveness = 3 // Camera unavailable or face verification required
	ExitLocked   = 4 // PIN fallback locked out
)

// Error codes (strings) for programmatic error handling
const (
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeSessionExpired     = "SESSION_EXPIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeFaceRequired       = "FACE_REQUIRED"
	CodeCameraUnavailable  = "CAMERA_UNAVAILABLE"
	CodePinLocked          = "PIN_LOCKED"
	CodeConnectionFailed   = "CONNECTION_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// CLIError represents a structured error for CLI output.
type CLIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	Retryable bool   `json:"retryable"`
	ExitCode  int    `json:"-"` // Not serialized, used for os.Exit
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// NotAuthenticated creates an error for commands that need a session.
func NotAuthenticated() *CLIError {
	return &CLIError{
		Code:      CodeNotAuthenticated,
		Message:   "not authenticated",
		Hint:      "Run 'bioctl login' to authenticate",
		Retryable: false,
		ExitCode:  ExitAuth,
	}
}

// SessionExpired creates an error for expired access credentials.
func SessionExpired() *CLIError {
	return &CLIError{
		Code:      CodeSessionExpired,
		Message:   "session has expired",
		Hint:      "Run 'bioctl login' to re-authenticate",
		Retryable: true,
		ExitCode:  ExitAuth,
	}
}

// InvalidCredentials creates an error for a rejected email/password pair.
func InvalidCredentials(detail string) *CLIError {
	msg := "invalid email or password"
	if detail != "" {
		msg = detail
	}
	return &CLIError{
		Code:      CodeInvalidCredentials,
		Message:   msg,
		Hint:      "Check the email address and try again",
		Retryable: true,
		ExitCode:  ExitAuth,
	}
}

// FaceRequired creates an error when a session lacks the face or PIN step.
func FaceRequired() *CLIError {
	return &CLIError{
		Code:      CodeFaceRequired,
		Message:   "session requires face verification or PIN fallback",
		Hint:      "Run 'bioctl login' to complete the full sequence",
		Retryable: false,
		ExitCode:  ExitLiveness,
	}
}

// CameraUnavailable creates an error when frame acquisition fails.
func CameraUnavailable() *CLIError {
	return &CLIError{
		Code:      CodeCameraUnavailable,
		Message:   "camera unavailable",
		Hint:      "Check that no other application holds the camera, or use --frames-dir",
		Retryable: true,
		ExitCode:  ExitLiveness,
	}
}

// PinLocked creates an error for a locked-out PIN fallback. The server's
// message is preserved verbatim because it carries the remaining time.
func PinLocked(detail string) *CLIError {
	return &CLIError{
		Code:      CodePinLocked,
		Message:   detail,
		Hint:      "Wait for the lockout to expire before retrying",
		Retryable: true,
		ExitCode:  ExitLocked,
	}
}

// ConnectionFailed creates an error for connection failures.
func ConnectionFailed(target string) *CLIError {
	return &CLIError{
		Code:      CodeConnectionFailed,
		Message:   fmt.Sprintf("failed to connect to '%s'", target),
		Hint:      "Check network connectivity and the verifier address",
		Retryable: true,
		ExitCode:  ExitGeneral,
	}
}

// InternalError creates an error for unexpected internal errors.
func InternalError(err error) *CLIError {
	msg := "an unexpected internal error occurred"
	if err != nil {
		msg = fmt.Sprintf("internal error: %s", err.Error())
	}
	return &CLIError{
		Code:      CodeInternalError,
		Message:   msg,
		Retryable: false,
		ExitCode:  ExitGeneral,
	}
}

// FormatError returns the error formatted for the given output format.
// Supported formats: "json" for JSON output, anything else for human-readable format.
func FormatError(err *CLIError, outputFormat string) string {
	if outputFormat == "json" {
		data, jsonErr := json.MarshalIndent(err, "", "  ")
		if jsonErr != nil {
			return fmt.Sprintf(`{"code":%q,"message":%q}`, err.Code, err.Message)
		}
		return string(data)
	}

	output := fmt.Sprintf("Error [%s]: %s", err.Code, err.Message)
	if err.Hint != "" {
		output += fmt.Sprintf("\nHint: %s", err.Hint)
	}
	return output
}

// PrintError prints the error to stderr in the appropriate format.
func PrintError(err *CLIError, outputFormat string) {
	fmt.Fprintln(os.Stderr, FormatError(err, outputFormat))
}
