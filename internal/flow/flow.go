// Package flow drives the multi-step login sequence: password
// credentials first, then face liveness, with a PIN fallback when the
// face step cannot succeed. It owns the state machine; the session
// store owns the resulting credential.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/yerzatm002/biometric-auth-system/pkg/audit"
	"github.com/yerzatm002/biometric-auth-system/pkg/liveness"
	"github.com/yerzatm002/biometric-auth-system/pkg/session"
	"github.com/yerzatm002/biometric-auth-system/pkg/verifier"
)

var (
	// ErrInvalidTransition means an operation was called from a state
	// that does not accept it.
	ErrInvalidTransition = errors.New("flow: operation not valid in current state")

	// ErrInvalidPIN means the submitted PIN failed local validation
	// before any network call was made.
	ErrInvalidPIN = errors.New("flow: PIN must be exactly 4 digits")

	// ErrConsentRequired means enrollment was attempted without the
	// biometric consent acknowledgement.
	ErrConsentRequired = errors.New("flow: biometric consent not acknowledged")
)

// State is a position in the login sequence.
type State string

const (
	StateCredentials State = "credentials"
	StateFaceVerify  State = "face_verify"
	StatePinFallback State = "pin_fallback"
	StateComplete    State = "complete"
)

// Capturer produces a liveness frame set. Both the timed sequencer and
// the guided variant satisfy this.
type Capturer interface {
	Capture(ctx context.Context) (*liveness.CaptureSet, error)
}

// Login is the interactive login state machine. It is not safe for
// concurrent use; a login is a single user-driven sequence.
type Login struct {
	sess     *session.Store
	api      *verifier.Client
	capturer Capturer
	recorder *audit.Recorder
	logger   *slog.Logger

	state          State
	email          string
	fallbackReason string
}

// NewLogin creates a login flow starting at the credentials step.
// If logger is nil, slog.Default() is used.
func NewLogin(sess *session.Store, api *verifier.Client, capturer Capturer, recorder *audit.Recorder, logger *slog.Logger) *Login {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = audit.NewRecorder(logger, audit.NopEmitter{})
	}
	return &Login{
		sess:     sess,
		api:      api,
		capturer: capturer,
		recorder: recorder,
		logger:   logger,
		state:    StateCredentials,
	}
}

// State returns the current position in the sequence.
func (l *Login) State() State { return l.state }

// FallbackReason explains why the flow moved to the PIN step. Empty
// unless the current state is StatePinFallback or the fallback was
// taken on the way to completion.
func (l *Login) FallbackReason() string { return l.fallbackReason }

// SubmitCredentials exchanges email and password for an access
// credential. On success the session is established and the flow
// advances to the face verification step. On failure the flow stays
// at the credentials step so the user can retry.
func (l *Login) SubmitCredentials(ctx context.Context, email, password string) error {
	if l.state != StateCredentials {
		return fmt.Errorf("%w: submit credentials from %s", ErrInvalidTransition, l.state)
	}

	token, err := l.api.Login(ctx, email, password)
	if err != nil {
		l.recorder.Record(audit.EventLoginFailure, email, err.Error())
		return err
	}

	if err := l.sess.SetCredential(token, 0); err != nil {
		return err
	}

	l.email = email
	l.state = StateFaceVerify
	l.recorder.Record(audit.EventLoginSuccess, l.actorID(), "")
	l.logger.Info("credentials accepted", "subject", l.sess.Snapshot().SubjectID)
	return nil
}

// RunFaceVerify captures a liveness frame set and submits it for
// verification. On a verified result the flow completes. A rejected
// result moves the flow to the PIN fallback step. Capture and
// transport failures are terminal for this attempt only: the flow
// stays at the face step so the caller can retry or choose the
// fallback explicitly.
func (l *Login) RunFaceVerify(ctx context.Context) error {
	if l.state != StateFaceVerify {
		return fmt.Errorf("%w: face verify from %s", ErrInvalidTransition, l.state)
	}

	set, err := l.capturer.Capture(ctx)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	subject := l.sess.Snapshot().SubjectID
	result, err := l.api.FaceVerifyMultiFrame(ctx, subject, set.FrameBytes())
	if err != nil {
		// Only a 4xx is a rejection of this subject's liveness
		// evidence; a 5xx is a server fault and stays retryable.
		if apiErr, ok := verifier.AsAPIError(err); ok && apiErr.StatusCode < 500 {
			l.fallBack("verification rejected: " + apiErr.Detail)
			return nil
		}
		return err
	}
	if !result.Verified {
		l.fallBack("face not recognized")
		return nil
	}

	if err := l.sess.SetFaceVerified(true); err != nil {
		return err
	}
	l.state = StateComplete
	l.recorder.Record(audit.EventFaceVerified, l.actorID(), "")
	l.logger.Info("face verified", "subject", subject, "frames", len(set.Frames))
	return nil
}

// FallBackToPin skips the face step at the caller's request, typically
// when no camera is available. Valid only from the face step.
func (l *Login) FallBackToPin(reason string) error {
	if l.state != StateFaceVerify {
		return fmt.Errorf("%w: PIN fallback from %s", ErrInvalidTransition, l.state)
	}
	l.fallBack(reason)
	return nil
}

// SubmitPIN attempts the PIN fallback. The PIN is validated locally
// before any network call. A wrong PIN keeps the flow at the fallback
// step; a locked account surfaces the server's lockout message
// verbatim and also stays, so the caller can show the remaining time.
func (l *Login) SubmitPIN(ctx context.Context, pin string) error {
	if l.state != StatePinFallback {
		return fmt.Errorf("%w: submit PIN from %s", ErrInvalidTransition, l.state)
	}
	if !validPIN(pin) {
		return ErrInvalidPIN
	}

	subject := l.sess.Snapshot().SubjectID
	token, err := l.api.LoginPin(ctx, subject, pin)
	if err != nil {
		if apiErr, ok := verifier.AsAPIError(err); ok {
			switch {
			case apiErr.IsLocked():
				l.recorder.Record(audit.EventPinLocked, l.actorID(), apiErr.Detail)
			case apiErr.IsUnauthorized():
				l.recorder.Record(audit.EventPinFailure, l.actorID(), apiErr.Detail)
			}
		}
		return err
	}

	if err := l.sess.SetCredential(token, subject); err != nil {
		return err
	}
	if err := l.sess.MarkPINIssued(); err != nil {
		return err
	}
	l.state = StateComplete
	l.recorder.Record(audit.EventPinFallback, l.actorID(), l.fallbackReason)
	l.logger.Info("PIN fallback accepted", "subject", subject)
	return nil
}

// Reset abandons the flow: the verifier is told to log out on a
// best-effort basis, the local session is cleared unconditionally,
// and the machine returns to the credentials step.
func (l *Login) Reset(ctx context.Context) error {
	if err := l.api.Logout(ctx); err != nil {
		l.logger.Warn("remote logout failed", "error", err)
	}
	if err := l.sess.ClearCredential(); err != nil {
		return err
	}
	l.recorder.Record(audit.EventSessionCleared, l.actorID(), "")
	l.state = StateCredentials
	l.fallbackReason = ""
	return nil
}

func (l *Login) fallBack(reason string) {
	l.fallbackReason = reason
	l.state = StatePinFallback
	l.recorder.Record(audit.EventFaceRejected, l.actorID(), reason)
	l.logger.Warn("face step failed, falling back to PIN", "reason", reason)
}

func (l *Login) actorID() string {
	if id := l.sess.Snapshot().SubjectID; id != 0 {
		return strconv.FormatInt(id, 10)
	}
	return l.email
}

func validPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
