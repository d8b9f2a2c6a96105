package clierror

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		got      int
		expected int
	}{
		{"ExitSuccess", ExitSuccess, 0},
		{"ExitGeneral", ExitGeneral, 1},
		{"ExitAuth", ExitAuth, 2},
		{"ExitLiveness", ExitLiveness, 3},
		{"ExitLocked", ExitLocked, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		err       *CLIError
		code      string
		exitCode  int
		retryable bool
	}{
		{"NotAuthenticated", NotAuthenticated(), CodeNotAuthenticated, ExitAuth, false},
		{"SessionExpired", SessionExpired(), CodeSessionExpired, ExitAuth, true},
		{"InvalidCredentials", InvalidCredentials(""), CodeInvalidCredentials, ExitAuth, true},
		{"FaceRequired", FaceRequired(), CodeFaceRequired, ExitLiveness, false},
		{"CameraUnavailable", CameraUnavailable(), CodeCameraUnavailable, ExitLiveness, true},
		{"PinLocked", PinLocked("PIN fallback locked. Try again in 15 minutes"), CodePinLocked, ExitLocked, true},
		{"ConnectionFailed", ConnectionFailed("http://localhost:8000"), CodeConnectionFailed, ExitGeneral, true},
		{"InternalError", InternalError(nil), CodeInternalError, ExitGeneral, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.ExitCode != tt.exitCode {
				t.Errorf("ExitCode = %d, want %d", tt.err.ExitCode, tt.exitCode)
			}
			if tt.err.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", tt.err.Retryable, tt.retryable)
			}
			if tt.err.Error() == "" {
				t.Error("Error() returned empty message")
			}
		})
	}
}

func TestPinLockedPreservesDetail(t *testing.T) {
	t.Parallel()
	detail := "PIN fallback locked. Try again in 15 minutes"
	err := PinLocked(detail)
	if err.Message != detail {
		t.Errorf("Message = %q, want server detail verbatim", err.Message)
	}
}

func TestFormatErrorJSON(t *testing.T) {
	t.Parallel()
	out := FormatError(SessionExpired(), "json")

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["code"] != CodeSessionExpired {
		t.Errorf("code = %v, want %q", decoded["code"], CodeSessionExpired)
	}
	if _, present := decoded["ExitCode"]; present {
		t.Error("ExitCode leaked into JSON output")
	}
}

func TestFormatErrorHuman(t *testing.T) {
	t.Parallel()
	out := FormatError(NotAuthenticated(), "table")
	if !strings.Contains(out, "Error [NOT_AUTHENTICATED]") {
		t.Errorf("missing code prefix: %q", out)
	}
	if !strings.Contains(out, "Hint:") {
		t.Errorf("missing hint line: %q", out)
	}
}
