package audit

import (
	"log/slog"

	"github.com/yerzatm002/biometric-auth-system/pkg/store"
)

// EventEmitter accepts structured audit events for recording.
type EventEmitter interface {
	Emit(Event) error
}

// NopEmitter discards all events. Use when no audit backend is configured.
type NopEmitter struct{}

// Emit discards the event.
func (NopEmitter) Emit(Event) error { return nil }

// StoreEmitter persists events to the local session database so the
// trail survives restarts and is available offline.
type StoreEmitter struct {
	db *store.Store
}

// NewStoreEmitter creates an emitter backed by the given store.
func NewStoreEmitter(db *store.Store) *StoreEmitter {
	return &StoreEmitter{db: db}
}

// Emit appends the event to the store's audit trail.
func (e *StoreEmitter) Emit(ev Event) error {
	return e.db.AppendAudit(string(ev.Type), ev.ActorID, success(ev.Type), ev.Detail)
}

// Recorder fans events out to one or more backends. Emit errors are
// logged but never propagate; a broken audit backend must not block
// the login flow.
type Recorder struct {
	backends []EventEmitter
	logger   *slog.Logger
}

// NewRecorder creates a recorder that forwards events to the given backends.
// If logger is nil, slog.Default() is used for error reporting.
func NewRecorder(logger *slog.Logger, backends ...EventEmitter) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		backends: backends,
		logger:   logger,
	}
}

// Record builds an Event for the given type and writes it to all backends.
func (r *Recorder) Record(et EventType, actorID, detail string) {
	ev := NewEvent(et, actorID, detail)
	for _, b := range r.backends {
		if err := b.Emit(ev); err != nil {
			r.logger.Error("audit emit failed", "event", string(et), "error", err)
		}
	}
}
