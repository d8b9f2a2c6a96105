package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/yerzatm002/biometric-auth-system/pkg/store"
)

// ErrNotAuthenticated is returned when an operation requires a live
// credential and the session has none.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// Session is an immutable snapshot of the current authentication state.
//
// Invariants, checked after every mutation:
//   - Authenticated is true iff AccessCredential is non-empty.
//   - FaceVerified and PINIssued imply Authenticated; both reset to
//     false whenever the credential changes or is cleared, and never
//     survive a process restart.
type Session struct {
	AccessCredential string
	SubjectID        int64
	Authenticated    bool
	FaceVerified     bool
	PINIssued        bool
	ExpiresAt        *time.Time
}

// Store is the single source of truth for the session. All mutation
// goes through its methods; concurrent readers (the pipeline, the
// guard) take cheap snapshots under the lock.
type Store struct {
	mu     sync.Mutex
	db     *store.Store
	logger *slog.Logger
	cur    Session
}

// New creates a session store backed by db. If logger is nil,
// slog.Default() is used.
func New(db *store.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Initialize loads the persisted credential record at process start.
// If a credential is present its payload is decoded to populate the
// subject id when none was stored explicitly. Makes no network call;
// FaceVerified and PINIssued always start false on a fresh load.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.db.SessionRecord()
	if errors.Is(err, store.ErrNotFound) {
		s.cur = Session{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session record: %w", err)
	}

	s.cur = Session{
		AccessCredential: rec.AccessCredential,
		Authenticated:    rec.AccessCredential != "",
	}
	if id, err := strconv.ParseInt(rec.SubjectID, 10, 64); err == nil {
		s.cur.SubjectID = id
	}

	if c, ok := decodeClaims(rec.AccessCredential); ok {
		if s.cur.SubjectID == 0 {
			s.cur.SubjectID = c.subjectID
		}
		s.cur.ExpiresAt = c.expiresAt
	}

	s.logger.Debug("session initialized",
		"authenticated", s.cur.Authenticated,
		"subject_id", s.cur.SubjectID)
	return nil
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.cur
	if snap.ExpiresAt != nil {
		t := *snap.ExpiresAt
		snap.ExpiresAt = &t
	}
	return snap
}

// SetCredential installs a new access credential, deriving the subject
// id from the credential payload when subjectID is zero. The record is
// persisted atomically; FaceVerified and PINIssued reset to false. A
// credential whose payload cannot be decoded keeps the prior subject id
// rather than failing.
func (s *Store) SetCredential(credential string, subjectID int64) error {
	if credential == "" {
		return errors.New("session: empty credential")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := Session{
		AccessCredential: credential,
		SubjectID:        subjectID,
		Authenticated:    true,
	}
	c, ok := decodeClaims(credential)
	if ok {
		next.ExpiresAt = c.expiresAt
		if next.SubjectID == 0 {
			next.SubjectID = c.subjectID
		}
	}
	if next.SubjectID == 0 {
		// Opaque credential and no explicit id: keep what we had.
		next.SubjectID = s.cur.SubjectID
	}

	rec := store.SessionRecord{AccessCredential: credential}
	if next.SubjectID != 0 {
		rec.SubjectID = strconv.FormatInt(next.SubjectID, 10)
	}
	if err := s.db.SetSessionRecord(rec); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}

	s.cur = next
	s.logger.Debug("credential set", "subject_id", next.SubjectID, "decoded", ok)
	return nil
}

// SetFaceVerified sets the face verification flag. Setting it to true
// requires an authenticated session; the flag lives only in memory and
// never survives a restart.
func (s *Store) SetFaceVerified(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v && !s.cur.Authenticated {
		return ErrNotAuthenticated
	}
	s.cur.FaceVerified = v
	return nil
}

// MarkPINIssued records that the active credential was obtained through
// the PIN-fallback path, which admits the session through the route
// guard without face verification.
func (s *Store) MarkPINIssued() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cur.Authenticated {
		return ErrNotAuthenticated
	}
	s.cur.PINIssued = true
	return nil
}

// ClearCredential erases the durable record and resets the session to
// empty. Idempotent.
func (s *Store) ClearCredential() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.ClearSessionRecord(); err != nil {
		return err
	}
	s.cur = Session{}
	s.logger.Debug("session cleared")
	return nil
}

// IsExpired reports whether the credential's expiry claim is at or past
// the current time. A credential without an expiry claim is treated as
// non-expiring from the client's perspective; only the server can
// reject it.
func (s *Store) IsExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur.ExpiresAt == nil {
		return false
	}
	return !time.Now().Before(*s.cur.ExpiresAt)
}

// AuthorizationHeader returns the value for the Authorization header,
// or ok=false when the session holds no credential.
func (s *Store) AuthorizationHeader() (value string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur.AccessCredential == "" {
		return "", false
	}
	return "Bearer " + s.cur.AccessCredential, true
}
