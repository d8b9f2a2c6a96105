package session

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// claims is the self-describing payload of a credential, as far as this
// client cares: who it belongs to and when it stops working.
type claims struct {
	subjectID int64      // 0 when absent or non-numeric
	expiresAt *time.Time // nil when no exp claim is present
}

// decodeClaims parses the payload of a three-part dot-delimited
// credential without verifying its signature. It never panics and never
// returns an error: a malformed credential (wrong part count, bad
// base64url padding, invalid JSON) yields (nil, false) and the caller
// treats the credential as opaque.
func decodeClaims(credential string) (*claims, bool) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, mc); err != nil {
		return nil, false
	}

	c := &claims{}
	if sub, err := mc.GetSubject(); err == nil && sub != "" {
		if id, err := strconv.ParseInt(sub, 10, 64); err == nil {
			c.subjectID = id
		}
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		c.expiresAt = &t
	}
	return c, true
}
