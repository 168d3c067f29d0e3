// Package db provides repository operations for the sync core's local cache.
package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/podiumhq/podium-core/internal/models"
	"github.com/podiumhq/podium-core/internal/uuid"
)

// Repository provides access to the locally cached rows and the persisted
// key-value state the sync loop depends on.
type Repository struct {
	db *sql.DB

	// Prepared statement cache; statements are prepared on first use.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from the cache.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine prepared this first; discard the duplicate.
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		if err := value.(*sql.Stmt).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// =====================================================
// Key-Value State
// =====================================================

// KeyValueStorage binds one kv_store key to a Load/Save slot. The mutation
// queue persists itself through one of these.
type KeyValueStorage struct {
	repo *Repository
	key  string
}

// NewKeyValueStorage creates a storage slot over the given key.
func NewKeyValueStorage(repo *Repository, key string) *KeyValueStorage {
	return &KeyValueStorage{repo: repo, key: key}
}

func (s *KeyValueStorage) Load() (string, bool, error) {
	return s.repo.GetValue(s.key)
}

func (s *KeyValueStorage) Save(value string) error {
	return s.repo.SetValue(s.key, value)
}

// GetValue reads a persisted value by key. Returns ok=false when the key has
// never been written.
func (r *Repository) GetValue(key string) (string, bool, error) {
	stmt, err := r.PrepareStmt("SELECT value FROM kv_store WHERE key = ?")
	if err != nil {
		return "", false, err
	}

	var value string
	err = stmt.QueryRow(key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetValue writes a persisted value, replacing any previous one.
func (r *Repository) SetValue(key, value string) error {
	stmt, err := r.PrepareStmt(`
	INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(key, value, time.Now().Unix())
	return err
}

// =====================================================
// CalendarException Operations
// =====================================================

// CreateCalendarException inserts a new exception entry for a date.
func (r *Repository) CreateCalendarException(e *models.CalendarException) error {
	now := time.Now().Unix()
	if e.ID == "" {
		e.ID = models.UUID(uuid.New())
	}
	e.CreatedAt = now
	e.UpdatedAt = now

	query := `
	INSERT INTO calendar_exceptions (id, congregation_id, date, reason, custom_reason, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, e.ID, e.CongregationID, e.Date, e.Reason, e.CustomReason, e.CreatedAt, e.UpdatedAt)
	return err
}

// UpdateCalendarException updates an existing entry in place. Reverting a
// date to the regular program goes through here, never through a delete.
func (r *Repository) UpdateCalendarException(e *models.CalendarException) error {
	e.UpdatedAt = time.Now().Unix()
	query := `
	UPDATE calendar_exceptions SET reason = ?, custom_reason = ?, updated_at = ?
	WHERE congregation_id = ? AND date = ?`
	res, err := r.db.Exec(query, e.Reason, e.CustomReason, e.UpdatedAt, e.CongregationID, e.Date)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetCalendarException retrieves the entry for a single date, or nil when
// the date has no entry.
func (r *Repository) GetCalendarException(congregationID, date string) (*models.CalendarException, error) {
	stmt, err := r.PrepareStmt(`
	SELECT id, congregation_id, date, reason, custom_reason, created_at, updated_at
	FROM calendar_exceptions WHERE congregation_id = ? AND date = ?`)
	if err != nil {
		return nil, err
	}

	var e models.CalendarException
	var customReason sql.NullString
	err = stmt.QueryRow(congregationID, date).Scan(
		&e.ID, &e.CongregationID, &e.Date, &e.Reason, &customReason, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if customReason.Valid {
		e.CustomReason = customReason.String
	}
	return &e, nil
}

// ListExceptionDates returns which of the candidate dates already have a
// persisted entry. The reconciler uses this to fill only the gaps.
func (r *Repository) ListExceptionDates(congregationID string, dates []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(dates))
	stmt, err := r.PrepareStmt(
		"SELECT 1 FROM calendar_exceptions WHERE congregation_id = ? AND date = ?")
	if err != nil {
		return nil, err
	}

	for _, date := range dates {
		var one int
		err := stmt.QueryRow(congregationID, date).Scan(&one)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		existing[date] = true
	}
	return existing, nil
}

// =====================================================
// SpeechAssignment Operations
// =====================================================

// CreateSpeechAssignment inserts a new assignment row.
func (r *Repository) CreateSpeechAssignment(s *models.SpeechAssignment) error {
	now := time.Now().Unix()
	if s.ID == "" {
		s.ID = models.UUID(uuid.New())
	}
	if s.Status == "" {
		s.Status = models.StatusNotAssigned
	}
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `
	INSERT INTO speeches (id, congregation_id, meeting_date, slot, speaker_id, speech_title_id, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, s.ID, s.CongregationID, s.MeetingDate, s.Slot,
		s.SpeakerID, s.SpeechTitleID, s.Status, s.CreatedAt, s.UpdatedAt)
	return err
}

// GetSpeechAssignment retrieves an assignment by ID.
func (r *Repository) GetSpeechAssignment(id string) (*models.SpeechAssignment, error) {
	stmt, err := r.PrepareStmt(`
	SELECT id, congregation_id, meeting_date, slot, speaker_id, speech_title_id, status, created_at, updated_at
	FROM speeches WHERE id = ?`)
	if err != nil {
		return nil, err
	}

	var s models.SpeechAssignment
	var speakerID, titleID sql.NullString
	err = stmt.QueryRow(id).Scan(
		&s.ID, &s.CongregationID, &s.MeetingDate, &s.Slot,
		&speakerID, &titleID, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if speakerID.Valid {
		s.SpeakerID = models.UUID(speakerID.String)
	}
	if titleID.Valid {
		s.SpeechTitleID = models.UUID(titleID.String)
	}
	return &s, nil
}

// UpdateSpeechStatus persists a validated status change.
func (r *Repository) UpdateSpeechStatus(id string, status models.SpeechStatus) error {
	stmt, err := r.PrepareStmt("UPDATE speeches SET status = ?, updated_at = ? WHERE id = ?")
	if err != nil {
		return err
	}
	res, err := stmt.Exec(status, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateSpeechSpeaker persists a speaker (re)assignment alongside its status.
func (r *Repository) UpdateSpeechSpeaker(id string, speakerID models.UUID, status models.SpeechStatus) error {
	stmt, err := r.PrepareStmt("UPDATE speeches SET speaker_id = ?, status = ?, updated_at = ? WHERE id = ?")
	if err != nil {
		return err
	}
	res, err := stmt.Exec(speakerID, status, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
