package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"pomodoro/tracker/internal/auth"
	apperrors "pomodoro/tracker/internal/errors"
	"pomodoro/tracker/internal/model"
	"pomodoro/tracker/internal/repository"
	"pomodoro/tracker/internal/settings"
	"pomodoro/tracker/internal/timer"
)

const settingsLoadTimeout = 5 * time.Second

type userTimer struct {
	machine  *timer.Machine
	settings *settings.Manager
	auth     *auth.Session
}

// TimerService keeps one countdown per signed-in user. Countdowns live in
// memory only; a restart starts every user from a fresh pomodoro.
type TimerService struct {
	prefs     *repository.PreferenceRepository
	history   *HistoryService
	sink      timer.Sink
	newTicker timer.TickerFactory

	mu     sync.Mutex
	timers map[string]*userTimer
}

// NewTimerService wires countdowns to sink (normally a *timer.Recorder).
// newTicker may be nil for real one-second ticks.
func NewTimerService(
	prefs *repository.PreferenceRepository,
	history *HistoryService,
	sink timer.Sink,
	newTicker timer.TickerFactory,
) *TimerService {
	return &TimerService{
		prefs:     prefs,
		history:   history,
		sink:      sink,
		newTicker: newTicker,
		timers:    make(map[string]*userTimer),
	}
}

// timerFor returns the user's countdown, creating it on first use. Settings
// are read on a context detached from the request; a failed read is not
// cached so the next request retries instead of running on the defaults.
func (s *TimerService) timerFor(ctx context.Context, principal model.Principal) (*userTimer, *apperrors.APIError) {
	s.mu.Lock()
	existing, ok := s.timers[principal.ID]
	s.mu.Unlock()
	if ok {
		return existing, nil
	}

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settingsLoadTimeout)
	defer cancel()
	manager := settings.NewManager(s.prefs.ForUser(principal.ID))
	if _, err := manager.Load(loadCtx); err != nil {
		log.Printf("timer: load settings for %s: %v", principal.ID, err)
		return nil, apperrors.Internal("failed to load timer settings")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.timers[principal.ID]; ok {
		return existing, nil
	}

	session := auth.NewSignedIn(principal)
	entry := &userTimer{
		settings: manager,
		auth:     session,
		machine: timer.NewMachine(timer.Config{
			Settings:  manager,
			Principal: session,
			Sink:      s.sink,
			NewTicker: s.newTicker,
		}),
	}
	s.timers[principal.ID] = entry
	return entry, nil
}

// control runs action against the user's machine and returns the resulting state.
func (s *TimerService) control(ctx context.Context, principal model.Principal, action func(*timer.Machine)) (timer.Snapshot, *apperrors.APIError) {
	entry, apiErr := s.timerFor(ctx, principal)
	if apiErr != nil {
		return timer.Snapshot{}, apiErr
	}
	if action != nil {
		action(entry.machine)
	}
	return entry.machine.Snapshot(), nil
}

func (s *TimerService) State(ctx context.Context, principal model.Principal) (timer.Snapshot, *apperrors.APIError) {
	return s.control(ctx, principal, nil)
}

// Start sets the session title when one is given, then starts the countdown.
func (s *TimerService) Start(ctx context.Context, principal model.Principal, title *string) (timer.Snapshot, *apperrors.APIError) {
	return s.control(ctx, principal, func(machine *timer.Machine) {
		if title != nil {
			machine.SetTitle(*title)
		}
		machine.Start()
	})
}

func (s *TimerService) Pause(ctx context.Context, principal model.Principal) (timer.Snapshot, *apperrors.APIError) {
	return s.control(ctx, principal, (*timer.Machine).Pause)
}

func (s *TimerService) Stop(ctx context.Context, principal model.Principal) (timer.Snapshot, *apperrors.APIError) {
	return s.control(ctx, principal, (*timer.Machine).Stop)
}

func (s *TimerService) Reset(ctx context.Context, principal model.Principal) (timer.Snapshot, *apperrors.APIError) {
	return s.control(ctx, principal, (*timer.Machine).Reset)
}

func (s *TimerService) SetMode(ctx context.Context, principal model.Principal, mode string) (timer.Snapshot, *apperrors.APIError) {
	next := model.Mode(mode)
	if !next.Valid() {
		return timer.Snapshot{}, apperrors.BadRequest("invalid_mode", "mode must be one of pomodoro, short_break, long_break")
	}
	return s.control(ctx, principal, func(machine *timer.Machine) {
		machine.SetMode(next)
	})
}

func (s *TimerService) Settings(ctx context.Context, principal model.Principal) (model.TimerSettings, *apperrors.APIError) {
	entry, apiErr := s.timerFor(ctx, principal)
	if apiErr != nil {
		return model.TimerSettings{}, apiErr
	}
	return entry.settings.Get(), nil
}

func (s *TimerService) UpdateSettings(ctx context.Context, principal model.Principal, patch settings.Patch) (timer.Snapshot, *apperrors.APIError) {
	entry, apiErr := s.timerFor(ctx, principal)
	if apiErr != nil {
		return timer.Snapshot{}, apiErr
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settingsLoadTimeout)
	defer cancel()
	if _, err := entry.settings.Update(saveCtx, patch); err != nil {
		if errors.Is(err, settings.ErrInvalidSettings) {
			fields := patch.Apply(entry.settings.Get()).InvalidFields()
			return timer.Snapshot{}, apperrors.BadRequest("invalid_duration", err.Error()).
				WithDetails(map[string][]string{"fields": fields})
		}
		return timer.Snapshot{}, apperrors.Internal("failed to update settings")
	}
	return entry.machine.Snapshot(), nil
}

// LoadSession queues one of the user's stored sessions so the next start
// reopens it.
func (s *TimerService) LoadSession(ctx context.Context, principal model.Principal, sessionID string) (timer.Snapshot, *apperrors.APIError) {
	if sessionID == "" {
		return timer.Snapshot{}, apperrors.BadRequest("invalid_session_id", "sessionId is required")
	}
	session, apiErr := s.history.GetSession(ctx, principal.ID, sessionID)
	if apiErr != nil {
		return timer.Snapshot{}, apiErr
	}
	return s.control(ctx, principal, func(machine *timer.Machine) {
		machine.Load(*session)
	})
}

// SignOut cancels the user's countdown without a completion write and forgets it.
func (s *TimerService) SignOut(userID string) {
	s.mu.Lock()
	entry, ok := s.timers[userID]
	delete(s.timers, userID)
	s.mu.Unlock()

	if !ok {
		return
	}
	entry.auth.SignOut()
	entry.machine.Close()
}

// Close tears down every countdown.
func (s *TimerService) Close() {
	s.mu.Lock()
	timers := s.timers
	s.timers = make(map[string]*userTimer)
	s.mu.Unlock()

	for _, entry := range timers {
		entry.machine.Close()
	}
}
