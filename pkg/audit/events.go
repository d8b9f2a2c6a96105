package audit

import "time"

// Severity classifies how concerning an event is when scanning the trail.
type Severity int

const (
	SeverityWarning Severity = 4
	SeverityNotice  Severity = 5
	SeverityInfo    Severity = 6
)

// String returns the human-readable name for a severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityNotice:
		return "NOTICE"
	case SeverityWarning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// EventType identifies a security-relevant audit event.
type EventType string

const (
	EventLoginSuccess     EventType = "login.success"
	EventLoginFailure     EventType = "login.failure"
	EventFaceVerified     EventType = "face.verified"
	EventFaceRejected     EventType = "face.rejected"
	EventPinFallback      EventType = "pin.fallback.success"
	EventPinFailure       EventType = "pin.fallback.failure"
	EventPinLocked        EventType = "pin.fallback.locked"
	EventSessionRefreshed EventType = "session.refreshed"
	EventSessionCleared   EventType = "session.cleared"
	EventRegisterComplete EventType = "register.complete"
	EventEnrollComplete   EventType = "enroll.complete"
)

// AllEventTypes returns every defined event type for iteration and validation.
func AllEventTypes() []EventType {
	return []EventType{
		EventLoginSuccess,
		EventLoginFailure,
		EventFaceVerified,
		EventFaceRejected,
		EventPinFallback,
		EventPinFailure,
		EventPinLocked,
		EventSessionRefreshed,
		EventSessionCleared,
		EventRegisterComplete,
		EventEnrollComplete,
	}
}

var severityMap = map[EventType]Severity{
	EventLoginSuccess:     SeverityInfo,
	EventLoginFailure:     SeverityWarning,
	EventFaceVerified:     SeverityInfo,
	EventFaceRejected:     SeverityWarning,
	EventPinFallback:      SeverityNotice,
	EventPinFailure:       SeverityWarning,
	EventPinLocked:        SeverityWarning,
	EventSessionRefreshed: SeverityInfo,
	EventSessionCleared:   SeverityNotice,
	EventRegisterComplete: SeverityNotice,
	EventEnrollComplete:   SeverityNotice,
}

// SeverityFor returns the severity for a given event type.
// Unknown event types return SeverityWarning (fail-secure: treat unknowns as concerning).
func SeverityFor(et EventType) Severity {
	if s, ok := severityMap[et]; ok {
		return s
	}
	return SeverityWarning
}

// success reports whether an event type represents a positive outcome.
func success(et EventType) bool {
	switch et {
	case EventLoginFailure, EventFaceRejected, EventPinFailure, EventPinLocked:
		return false
	default:
		return true
	}
}

// Event is one security-relevant occurrence in the authentication flow.
type Event struct {
	Type      EventType
	Severity  Severity
	Timestamp time.Time
	ActorID   string // subject ID or email, depending on how far the flow got
	Detail    string // event-specific context, e.g. a rejection reason
}

// NewEvent builds an Event with the canonical severity for its type.
func NewEvent(et EventType, actorID, detail string) Event {
	return Event{
		Type:      et,
		Severity:  SeverityFor(et),
		Timestamp: time.Now(),
		ActorID:   actorID,
		Detail:    detail,
	}
}
