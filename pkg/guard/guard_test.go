package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yerzatm002/biometric-auth-system/pkg/session"
)

func newGuard(t *testing.T) *Guard {
	t.Helper()
	g, err := New(Config{})
	require.NoError(t, err)
	return g
}

func future() *time.Time {
	t := time.Now().Add(time.Hour)
	return &t
}

func past() *time.Time {
	t := time.Now().Add(-time.Minute)
	return &t
}

func TestCheck(t *testing.T) {
	g := newGuard(t)

	cases := []struct {
		name    string
		snap    session.Session
		allowed bool
		reason  Reason
	}{
		{
			name:   "EmptySession",
			snap:   session.Session{},
			reason: ReasonUnauthenticated,
		},
		{
			name: "AuthenticatedWithoutStepUp",
			snap: session.Session{
				AccessCredential: "t", SubjectID: 1,
				Authenticated: true, ExpiresAt: future(),
			},
			reason: ReasonFaceRequired,
		},
		{
			name: "FaceVerified",
			snap: session.Session{
				AccessCredential: "t", SubjectID: 1,
				Authenticated: true, FaceVerified: true, ExpiresAt: future(),
			},
			allowed: true,
		},
		{
			name: "PINIssued",
			snap: session.Session{
				AccessCredential: "t", SubjectID: 1,
				Authenticated: true, PINIssued: true, ExpiresAt: future(),
			},
			allowed: true,
		},
		{
			name: "ExpiredDespiteFaceVerification",
			snap: session.Session{
				AccessCredential: "t", SubjectID: 1,
				Authenticated: true, FaceVerified: true, ExpiresAt: past(),
			},
			reason: ReasonExpired,
		},
		{
			name: "NoExpiryClaimIsNonExpiring",
			snap: session.Session{
				AccessCredential: "t", SubjectID: 1,
				Authenticated: true, FaceVerified: true,
			},
			allowed: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := g.Check(tc.snap, "/dashboard")
			assert.Equal(t, tc.allowed, d.Allowed)
			assert.Equal(t, tc.reason, d.Reason)
		})
	}
}

func TestNew_RejectsBrokenPolicy(t *testing.T) {
	_, err := New(Config{PolicyBytes: []byte("permit (")})
	assert.Error(t, err)
}
