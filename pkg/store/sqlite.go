package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// appName is the name of the client using the store, used for state
// directory paths. Default is "bioctl".
var appName = "bioctl"

// SetAppName sets the application name used for state directory paths.
// Call this at startup to isolate state between different clients built
// on this SDK.
func SetAppName(name string) {
	appName = name
}

// Fixed keys of the persisted credential record. Absence of either key
// means "no session".
const (
	KeyAccessCredential = "access_credential"
	KeySubjectID        = "subject_id"
)

// ErrNotFound is returned when a requested key or row does not exist.
var ErrNotFound = errors.New("store: not found")

// SessionRecord is the durable projection of an authenticated session:
// the bearer credential and the subject it belongs to, both stored as
// plain strings.
type SessionRecord struct {
	AccessCredential string
	SubjectID        string
}

// AuditEntry is one row of the local audit trail.
type AuditEntry struct {
	ID        int64
	EventType string
	ActorID   string
	Success   bool
	Detail    string
	CreatedAt time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database path following the XDG spec.
func DefaultPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, appName, appName+".db")
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode lets a long-lived session reader coexist with writes from
	// concurrent refresh cycles without SQLITE_BUSY surprises.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		actor_id TEXT DEFAULT '',
		success INTEGER NOT NULL DEFAULT 1,
		detail TEXT DEFAULT '',
		created_at INTEGER DEFAULT (strftime('%s', 'now'))
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetValue returns the value stored under key, or ErrNotFound.
func (s *Store) GetValue(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM session_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// SetValue stores value under key, replacing any previous value.
func (s *Store) SetValue(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO session_state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// DeleteValue removes key. Deleting a missing key is not an error.
func (s *Store) DeleteValue(key string) error {
	if _, err := s.db.Exec("DELETE FROM session_state WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// SessionRecord loads the persisted credential record. Returns ErrNotFound
// if no credential is stored; a stored credential with no subject id is
// returned with SubjectID empty.
func (s *Store) SessionRecord() (*SessionRecord, error) {
	cred, err := s.GetValue(KeyAccessCredential)
	if err != nil {
		return nil, err
	}
	rec := &SessionRecord{AccessCredential: cred}
	if id, err := s.GetValue(KeySubjectID); err == nil {
		rec.SubjectID = id
	}
	return rec, nil
}

// SetSessionRecord persists both fields of the credential record in one
// transaction so a crash can't leave a credential without its subject.
func (s *Store) SetSessionRecord(rec SessionRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin session record update: %w", err)
	}
	defer tx.Rollback()

	upsert := "INSERT INTO session_state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"
	if _, err := tx.Exec(upsert, KeyAccessCredential, rec.AccessCredential); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	if _, err := tx.Exec(upsert, KeySubjectID, rec.SubjectID); err != nil {
		return fmt.Errorf("persist subject id: %w", err)
	}
	return tx.Commit()
}

// ClearSessionRecord erases the persisted credential record. Idempotent.
func (s *Store) ClearSessionRecord() error {
	_, err := s.db.Exec(
		"DELETE FROM session_state WHERE key IN (?, ?)",
		KeyAccessCredential, KeySubjectID,
	)
	if err != nil {
		return fmt.Errorf("clear session record: %w", err)
	}
	return nil
}

// AppendAudit records one audit entry. The caller decides what is worth
// recording; the store never rejects an event type it hasn't seen.
func (s *Store) AppendAudit(eventType, actorID string, success bool, detail string) error {
	_, err := s.db.Exec(
		"INSERT INTO audit_log (event_type, actor_id, success, detail) VALUES (?, ?, ?, ?)",
		eventType, actorID, boolToInt(success), detail,
	)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns up to limit audit entries, newest first.
func (s *Store) ListAudit(limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		"SELECT id, event_type, actor_id, success, detail, created_at FROM audit_log ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var success int
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.EventType, &e.ActorID, &success, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Success = success != 0
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
