package audit

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/yerzatm002/biometric-auth-system/pkg/store"
)

// recordingEmitter captures emitted events for test verification.
type recordingEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingEmitter) Emit(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEmitter) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// failingEmitter always returns an error, for exercising the log-and-continue path.
type failingEmitter struct{}

func (failingEmitter) Emit(Event) error { return errors.New("backend down") }

func TestRecorder_Record(t *testing.T) {
	t.Parallel()
	t.Log("Verifying Recorder constructs and emits a login.failure event")

	rec := &recordingEmitter{}
	r := NewRecorder(slog.Default(), rec)

	r.Record(EventLoginFailure, "user@example.com", "invalid credentials")

	if rec.count() != 1 {
		t.Fatalf("expected 1 event, got %d", rec.count())
	}

	ev := rec.last()
	if ev.Type != EventLoginFailure {
		t.Errorf("Type = %q, want %q", ev.Type, EventLoginFailure)
	}
	if ev.Severity != SeverityWarning {
		t.Errorf("Severity = %d, want %d (WARNING)", ev.Severity, SeverityWarning)
	}
	if ev.ActorID != "user@example.com" {
		t.Errorf("ActorID = %q, want %q", ev.ActorID, "user@example.com")
	}
	if ev.Detail != "invalid credentials" {
		t.Errorf("Detail = %q, want %q", ev.Detail, "invalid credentials")
	}
	if ev.Timestamp.IsZero() {
		t.Error("Timestamp is zero, want populated")
	}
}

func TestRecorder_MultipleBackends(t *testing.T) {
	t.Parallel()
	t.Log("Verifying Recorder forwards to all backends")

	rec1 := &recordingEmitter{}
	rec2 := &recordingEmitter{}
	r := NewRecorder(slog.Default(), rec1, rec2)

	r.Record(EventFaceVerified, "7", "")

	if rec1.count() != 1 {
		t.Errorf("backend 1: expected 1 event, got %d", rec1.count())
	}
	if rec2.count() != 1 {
		t.Errorf("backend 2: expected 1 event, got %d", rec2.count())
	}
}

func TestRecorder_BackendErrorDoesNotStopOthers(t *testing.T) {
	t.Parallel()
	t.Log("Verifying a failing backend does not prevent delivery to the rest")

	rec := &recordingEmitter{}
	r := NewRecorder(slog.Default(), failingEmitter{}, rec)

	r.Record(EventPinLocked, "user@example.com", "locked 15m")

	if rec.count() != 1 {
		t.Fatalf("expected 1 event on healthy backend, got %d", rec.count())
	}
}

func TestRecorder_NilLogger(t *testing.T) {
	t.Parallel()
	t.Log("Verifying NewRecorder accepts nil logger without panic")

	rec := &recordingEmitter{}
	r := NewRecorder(nil, rec)
	r.Record(EventLoginSuccess, "7", "")

	if rec.count() != 1 {
		t.Errorf("expected 1 event, got %d", rec.count())
	}
}

func TestNopEmitter_Discard(t *testing.T) {
	t.Parallel()
	t.Log("Verifying NopEmitter discards events without error")

	if err := (NopEmitter{}).Emit(Event{Type: EventLoginSuccess}); err != nil {
		t.Errorf("NopEmitter.Emit returned error: %v", err)
	}
}

func TestStoreEmitter_PersistsTrail(t *testing.T) {
	t.Log("Verifying StoreEmitter writes events through to the audit table")

	db, err := store.Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	r := NewRecorder(slog.Default(), NewStoreEmitter(db))
	r.Record(EventLoginSuccess, "7", "")
	r.Record(EventPinLocked, "7", "locked 15m")

	entries, err := db.ListAudit(0)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Newest first.
	if entries[0].EventType != string(EventPinLocked) {
		t.Errorf("EventType = %q, want %q", entries[0].EventType, EventPinLocked)
	}
	if entries[0].Success {
		t.Error("pin.fallback.locked recorded as success, want failure")
	}
	if entries[0].Detail != "locked 15m" {
		t.Errorf("Detail = %q, want %q", entries[0].Detail, "locked 15m")
	}
	if !entries[1].Success {
		t.Error("login.success recorded as failure, want success")
	}
}

func TestSeverityFor_Unknown(t *testing.T) {
	t.Parallel()
	t.Log("Verifying unknown event types map to WARNING severity")

	if got := SeverityFor(EventType("bogus.event")); got != SeverityWarning {
		t.Errorf("SeverityFor(bogus) = %d, want %d", got, SeverityWarning)
	}
}

func TestAllEventTypes_HaveSeverities(t *testing.T) {
	t.Parallel()
	t.Log("Verifying every defined event type has an explicit severity mapping")

	for _, et := range AllEventTypes() {
		if _, ok := severityMap[et]; !ok {
			t.Errorf("event type %q has no severity mapping", et)
		}
	}
}
