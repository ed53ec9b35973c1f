package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PreferenceRepository is a per-user string key-value store.
type PreferenceRepository struct {
	db *sql.DB
}

func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) Get(ctx context.Context, userID, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(
		ctx,
		`SELECT value FROM user_preferences WHERE user_id = ? AND key = ?`,
		userID,
		key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, true, nil
}

func (r *PreferenceRepository) Set(ctx context.Context, userID, key, value string) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO user_preferences (user_id, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, key) DO UPDATE SET
		     value = excluded.value,
		     updated_at = excluded.updated_at`,
		userID,
		key,
		value,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}

// ForUser binds the repository to one owner so it can back a settings store.
func (r *PreferenceRepository) ForUser(userID string) *UserPreferences {
	return &UserPreferences{repo: r, userID: userID}
}

type UserPreferences struct {
	repo   *PreferenceRepository
	userID string
}

func (p *UserPreferences) Get(ctx context.Context, key string) (string, bool, error) {
	return p.repo.Get(ctx, p.userID, key)
}

func (p *UserPreferences) Set(ctx context.Context, key, value string) error {
	return p.repo.Set(ctx, p.userID, key, value)
}
