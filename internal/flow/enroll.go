package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/yerzatm002/biometric-auth-system/pkg/audit"
	"github.com/yerzatm002/biometric-auth-system/pkg/liveness"
	"github.com/yerzatm002/biometric-auth-system/pkg/session"
	"github.com/yerzatm002/biometric-auth-system/pkg/verifier"
)

// Enrollment registers a new account end to end: create the user, set
// the fallback PIN, establish a session, and enroll a reference face
// frame so later logins can verify against it.
type Enrollment struct {
	sess     *session.Store
	api      *verifier.Client
	capturer Capturer
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewEnrollment creates an enrollment flow. If logger is nil,
// slog.Default() is used.
func NewEnrollment(sess *session.Store, api *verifier.Client, capturer Capturer, recorder *audit.Recorder, logger *slog.Logger) *Enrollment {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = audit.NewRecorder(logger, audit.NopEmitter{})
	}
	return &Enrollment{
		sess:     sess,
		api:      api,
		capturer: capturer,
		recorder: recorder,
		logger:   logger,
	}
}

// Run performs the full enrollment. Consent must have been
// acknowledged and the PIN is validated locally before the account is
// created. Captured frames are taken from the same liveness protocol
// as login; the first (frontal) frame becomes the enrollment reference.
func (e *Enrollment) Run(ctx context.Context, email, password, pin string, consent bool) (*verifier.User, error) {
	if !consent {
		return nil, ErrConsentRequired
	}
	if !validPIN(pin) {
		return nil, ErrInvalidPIN
	}

	user, err := e.api.Register(ctx, email, password, "")
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	e.recorder.Record(audit.EventRegisterComplete, email, "")

	token, err := e.api.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login after register: %w", err)
	}
	if err := e.sess.SetCredential(token, user.ID); err != nil {
		return nil, err
	}

	if err := e.api.SetPin(ctx, user.ID, pin); err != nil {
		return nil, fmt.Errorf("set pin: %w", err)
	}

	set, err := e.capturer.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture reference frame: %w", err)
	}
	if len(set.Frames) == 0 {
		return nil, liveness.ErrNoFrame
	}

	if err := e.api.FaceEnroll(ctx, user.ID, set.Frames[0].Image); err != nil {
		return nil, fmt.Errorf("enroll face: %w", err)
	}
	e.recorder.Record(audit.EventEnrollComplete, strconv.FormatInt(user.ID, 10), "")
	e.logger.Info("enrollment complete", "subject", user.ID)
	return user, nil
}
