package service

import (
	"context"
	"errors"

	apperrors "pomodoro/tracker/internal/errors"
	"pomodoro/tracker/internal/model"
	"pomodoro/tracker/internal/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type HistoryService struct {
	repo *repository.SessionRepository
}

func NewHistoryService(repo *repository.SessionRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

func (s *HistoryService) ListSessions(ctx context.Context, userID, rawFilter string, limit int) ([]model.TimerSession, *apperrors.APIError) {
	filter, ok := model.ParseSessionFilter(rawFilter)
	if !ok {
		return nil, apperrors.BadRequest("invalid_filter", "filter must be one of all, completed, incomplete")
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	sessions, err := s.repo.ListSessions(ctx, userID, filter, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to get history")
	}
	return sessions, nil
}

func (s *HistoryService) GetSession(ctx context.Context, userID, id string) (*model.TimerSession, *apperrors.APIError) {
	session, err := s.repo.GetSession(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("session_not_found", "timer session not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get session")
	}
	return session, nil
}

func (s *HistoryService) DeleteSession(ctx context.Context, userID, id string) *apperrors.APIError {
	err := s.repo.DeleteSession(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("session_not_found", "timer session not found")
	}
	if err != nil {
		return apperrors.Internal("failed to delete session")
	}
	return nil
}

func (s *HistoryService) Stats(ctx context.Context, userID string) (model.SessionStats, *apperrors.APIError) {
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return model.SessionStats{}, apperrors.Internal("failed to get session stats")
	}
	return stats, nil
}
