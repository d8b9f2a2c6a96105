// Package guard decides whether the current session may enter a
// protected area. The admission predicate lives in an embedded Cedar
// policy evaluated against a snapshot of the session; callers redirect
// to the credentials entry point on any denial, clearing the credential
// first when the denial is due to expiry.
package guard

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cedar-policy/cedar-go"

	"github.com/yerzatm002/biometric-auth-system/pkg/session"
)

//go:embed policies.cedar
var policiesContent []byte

// Reason explains a denial.
type Reason string

const (
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonExpired         Reason = "expired"
	ReasonFaceRequired    Reason = "face_required"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed bool
	Reason  Reason // empty when Allowed
}

// Config contains options for the Guard.
type Config struct {
	// Logger for structured decision logging. If nil, uses slog.Default().
	Logger *slog.Logger

	// PolicyBytes allows loading policies from a custom source (for
	// testing). If nil, the embedded policies.cedar is used.
	PolicyBytes []byte
}

// Guard evaluates route admission. Every navigation to a protected area
// flows through Check; no admission decision is made anywhere else.
type Guard struct {
	policies *cedar.PolicySet
	logger   *slog.Logger
}

// New creates a guard with the given configuration.
func New(cfg Config) (*Guard, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	policyData := cfg.PolicyBytes
	if policyData == nil {
		policyData = policiesContent
	}

	ps, err := cedar.NewPolicySetFromBytes("policies.cedar", policyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policies: %w", err)
	}

	return &Guard{policies: ps, logger: logger}, nil
}

// Check evaluates the admission predicate for a navigation to route.
// The snapshot is judged as of the call: expiry is recomputed here so a
// session that went stale since its last mutation is still caught.
func (g *Guard) Check(snap session.Session, route string) Decision {
	expired := snap.ExpiresAt != nil && !time.Now().Before(*snap.ExpiresAt)

	principalUID := cedar.NewEntityUID("Session", cedar.String(strconv.FormatInt(snap.SubjectID, 10)))
	resourceUID := cedar.NewEntityUID("Route", cedar.String(route))

	entities := cedar.EntityMap{
		principalUID: cedar.Entity{
			UID:     principalUID,
			Parents: cedar.NewEntityUIDSet(),
			Attributes: cedar.NewRecord(cedar.RecordMap{
				"authenticated": cedar.Boolean(snap.Authenticated),
				"face_verified": cedar.Boolean(snap.FaceVerified),
				"pin_issued":    cedar.Boolean(snap.PINIssued),
			}),
		},
		resourceUID: cedar.Entity{
			UID:        resourceUID,
			Parents:    cedar.NewEntityUIDSet(),
			Attributes: cedar.NewRecord(cedar.RecordMap{}),
		},
	}

	req := cedar.Request{
		Principal: principalUID,
		Action:    cedar.NewEntityUID("Action", "navigate"),
		Resource:  resourceUID,
		Context: cedar.NewRecord(cedar.RecordMap{
			"expired": cedar.Boolean(expired),
		}),
	}

	decision, _ := cedar.Authorize(g.policies, entities, req)

	d := Decision{Allowed: decision == cedar.Allow}
	if !d.Allowed {
		switch {
		case !snap.Authenticated:
			d.Reason = ReasonUnauthenticated
		case expired:
			d.Reason = ReasonExpired
		default:
			d.Reason = ReasonFaceRequired
		}
	}

	g.logger.Debug("route admission",
		"route", route,
		"allowed", d.Allowed,
		"reason", string(d.Reason),
		"subject_id", snap.SubjectID)
	return d
}
