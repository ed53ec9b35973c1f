package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pomodoro/tracker/internal/model"
)

// SessionRepository persists timer_sessions rows. Every read and delete is
// scoped by owner; the write methods used by the timer recorder address rows
// by id alone because the id was issued to that owner's timer.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, title, duration_seconds, started_at, completed, created_at, updated_at`

func (r *SessionRepository) InsertSession(ctx context.Context, session *model.TimerSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO timer_sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.Title,
		session.DurationSeconds,
		formatTime(session.StartedAt),
		session.Completed,
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// ResumeSession restarts a previously stored session: new start instant,
// completion cleared.
func (r *SessionRepository) ResumeSession(ctx context.Context, id string, startedAt time.Time) error {
	return r.updateByID(
		ctx,
		`UPDATE timer_sessions
		 SET started_at = ?,
		     completed = 0,
		     updated_at = ?
		 WHERE id = ?`,
		formatTime(startedAt),
		formatTime(time.Now()),
		id,
	)
}

func (r *SessionRepository) CompleteSession(ctx context.Context, id string, completedAt time.Time) error {
	return r.updateByID(
		ctx,
		`UPDATE timer_sessions
		 SET completed = 1,
		     updated_at = ?
		 WHERE id = ?`,
		formatTime(completedAt),
		id,
	)
}

func (r *SessionRepository) updateByID(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SessionRepository) GetSession(ctx context.Context, userID, id string) (*model.TimerSession, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+sessionColumns+`
		 FROM timer_sessions
		 WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	return scanSession(row)
}

func (r *SessionRepository) DeleteSession(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(
		ctx,
		`DELETE FROM timer_sessions WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessions returns the owner's sessions newest first.
func (r *SessionRepository) ListSessions(ctx context.Context, userID string, filter model.SessionFilter, limit int) ([]model.TimerSession, error) {
	query := `SELECT ` + sessionColumns + `
		 FROM timer_sessions
		 WHERE user_id = ?`
	args := []interface{}{userID}

	switch filter {
	case model.FilterCompleted:
		query += ` AND completed = 1`
	case model.FilterIncomplete:
		query += ` AND completed = 0`
	}
	query += ` ORDER BY started_at DESC, created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.TimerSession, 0, limit)
	for rows.Next() {
		session, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

func (r *SessionRepository) Stats(ctx context.Context, userID string) (model.SessionStats, error) {
	var stats model.SessionStats
	err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1),
		        COALESCE(SUM(completed), 0),
		        COALESCE(SUM(CASE WHEN completed = 1 THEN duration_seconds ELSE 0 END), 0)
		 FROM timer_sessions
		 WHERE user_id = ?`,
		userID,
	).Scan(&stats.TotalSessions, &stats.CompletedSessions, &stats.CompletedFocusSeconds)
	if err != nil {
		return model.SessionStats{}, fmt.Errorf("session stats: %w", err)
	}
	return stats, nil
}

func scanSession(s scanner) (*model.TimerSession, error) {
	session := model.TimerSession{}
	var startedAt string
	var createdAt string
	var updatedAt string
	err := s.Scan(
		&session.ID,
		&session.UserID,
		&session.Title,
		&session.DurationSeconds,
		&startedAt,
		&session.Completed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if session.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse session started_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse session updated_at: %w", err)
	}

	return &session, nil
}
