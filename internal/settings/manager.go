// Package settings loads, merges and persists timer settings.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"pomodoro/tracker/internal/model"
)

// Key is the store key holding the JSON-encoded settings.
const Key = "timer_settings"

var ErrInvalidSettings = errors.New("all durations must be positive minutes")

// ErrMalformed marks a stored value a Store could read but not parse. Load
// treats it like a malformed settings value and falls back to the defaults.
var ErrMalformed = errors.New("malformed settings store")

// Patch is a partial update; nil fields keep their current value.
type Patch struct {
	PomodoroMinutes    *int  `json:"pomodoroMinutes"`
	ShortBreakMinutes  *int  `json:"shortBreakMinutes"`
	LongBreakMinutes   *int  `json:"longBreakMinutes"`
	AutoStartBreaks    *bool `json:"autoStartBreaks"`
	AutoStartPomodoros *bool `json:"autoStartPomodoros"`
}

func (p Patch) Apply(current model.TimerSettings) model.TimerSettings {
	next := current
	if p.PomodoroMinutes != nil {
		next.PomodoroMinutes = *p.PomodoroMinutes
	}
	if p.ShortBreakMinutes != nil {
		next.ShortBreakMinutes = *p.ShortBreakMinutes
	}
	if p.LongBreakMinutes != nil {
		next.LongBreakMinutes = *p.LongBreakMinutes
	}
	if p.AutoStartBreaks != nil {
		next.AutoStartBreaks = *p.AutoStartBreaks
	}
	if p.AutoStartPomodoros != nil {
		next.AutoStartPomodoros = *p.AutoStartPomodoros
	}
	return next
}

type Manager struct {
	// writeMu serializes Update end to end so saves and notifications land
	// in the same order as the in-memory changes.
	writeMu sync.Mutex

	mu        sync.RWMutex
	store     Store
	current   model.TimerSettings
	nextID    int
	listeners map[int]func(model.TimerSettings)
}

// NewManager starts from the defaults; call Load to read the store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:     store,
		current:   model.DefaultTimerSettings(),
		listeners: make(map[int]func(model.TimerSettings)),
	}
}

// Load replaces the current settings with the stored ones. Missing or
// malformed values fall back to the defaults; a failed read is returned and
// leaves the current settings untouched.
func (m *Manager) Load(ctx context.Context) (model.TimerSettings, error) {
	loaded, err := decode(ctx, m.store)
	if err != nil {
		return m.Get(), err
	}

	m.mu.Lock()
	m.current = loaded
	m.mu.Unlock()
	return loaded, nil
}

func (m *Manager) Get() model.TimerSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Update merges patch, persists the result and notifies subscribers. A failed
// store write is logged; the in-memory settings still change.
func (m *Manager) Update(ctx context.Context, patch Patch) (model.TimerSettings, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	next := patch.Apply(m.current)
	if !next.Valid() {
		m.mu.Unlock()
		return m.Get(), ErrInvalidSettings
	}
	m.current = next
	listeners := make([]func(model.TimerSettings), 0, len(m.listeners))
	for _, listener := range m.listeners {
		listeners = append(listeners, listener)
	}
	m.mu.Unlock()

	if err := Save(ctx, m.store, next); err != nil {
		log.Printf("settings: persist failed: %v", err)
	}

	for _, listener := range listeners {
		listener(next)
	}
	return next, nil
}

func (m *Manager) Subscribe(listener func(model.TimerSettings)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = listener
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Save writes settings to store under Key.
func Save(ctx context.Context, store Store, s model.TimerSettings) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return store.Set(ctx, Key, string(encoded))
}

func decode(ctx context.Context, store Store) (model.TimerSettings, error) {
	defaults := model.DefaultTimerSettings()

	raw, ok, err := store.Get(ctx, Key)
	if errors.Is(err, ErrMalformed) {
		log.Printf("settings: unreadable store, using defaults: %v", err)
		return defaults, nil
	}
	if err != nil {
		return defaults, fmt.Errorf("read settings: %w", err)
	}
	if !ok {
		return defaults, nil
	}

	loaded := defaults
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		log.Printf("settings: malformed value, using defaults: %v", err)
		return defaults, nil
	}
	if !loaded.Valid() {
		log.Printf("settings: non-positive durations stored, using defaults")
		return defaults, nil
	}
	return loaded, nil
}
