package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is one run of the frame pump.
type Session struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Transitions int        `json:"transitions"`
}

// Transition is a recorded change of gesture mode.
type Transition struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRepository records sessions and their mode transitions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Start creates a new open session.
func (r *SessionRepository) Start() (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		sess.ID, sess.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// End marks a session finished.
func (r *SessionRepository) End(id string) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		time.Now(), id,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns one session with its transition count.
func (r *SessionRepository) Get(id string) (*Session, error) {
	sess, err := scanSession(r.db.QueryRow(
		`SELECT s.id, s.started_at, s.ended_at, COUNT(t.id)
		 FROM sessions s LEFT JOIN mode_transitions t ON t.session_id = s.id
		 WHERE s.id = ? GROUP BY s.id`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

// List returns the most recent sessions first. limit <= 0 returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT s.id, s.started_at, s.ended_at, COUNT(t.id)
		 FROM sessions s LEFT JOIN mode_transitions t ON t.session_id = s.id
		 GROUP BY s.id ORDER BY s.started_at DESC, s.rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// RecordTransition appends a mode change to session id.
func (r *SessionRepository) RecordTransition(id, from, to string) (*Transition, error) {
	t := &Transition{
		SessionID: id,
		From:      from,
		To:        to,
		CreatedAt: time.Now(),
	}
	result, err := r.db.Exec(
		`INSERT INTO mode_transitions (session_id, from_mode, to_mode, created_at) VALUES (?, ?, ?, ?)`,
		t.SessionID, t.From, t.To, t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if t.ID, err = result.LastInsertId(); err != nil {
		return nil, err
	}
	return t, nil
}

// Transitions returns the transitions of session id in the order they
// happened.
func (r *SessionRepository) Transitions(id string) ([]*Transition, error) {
	if _, err := r.Get(id); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, from_mode, to_mode, created_at
		 FROM mode_transitions WHERE session_id = ? ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Transition
	for rows.Next() {
		t := &Transition{}
		if err := rows.Scan(&t.ID, &t.SessionID, &t.From, &t.To, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Delete removes a session and its transitions.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime
	if err := row.Scan(&sess.ID, &sess.StartedAt, &ended, &sess.Transitions); err != nil {
		return nil, err
	}
	if ended.Valid {
		sess.EndedAt = &ended.Time
	}
	return sess, nil
}
