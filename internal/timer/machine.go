// Package timer implements the pomodoro countdown state machine and the
// recorder that persists its sessions.
package timer

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pomodoro/tracker/internal/auth"
	"pomodoro/tracker/internal/model"
)

// PrincipalSource reports who the timer acts for.
type PrincipalSource interface {
	Principal() (model.Principal, bool)
	Subscribe(listener auth.Listener) func()
}

// SettingsSource provides the configured durations and auto-start flags.
type SettingsSource interface {
	Get() model.TimerSettings
	Subscribe(listener func(model.TimerSettings)) func()
}

// Config wires a Machine to its collaborators. Settings and Principal are
// required; the rest have working defaults.
type Config struct {
	Settings  SettingsSource
	Principal PrincipalSource
	Sink      Sink

	NewTicker    TickerFactory
	TickInterval time.Duration
	NewID        func() string
	Now          func() time.Time
}

// Snapshot is a read-only view of the countdown.
type Snapshot struct {
	Mode               model.Mode          `json:"mode"`
	SecondsRemaining   int                 `json:"secondsRemaining"`
	Running            bool                `json:"running"`
	CompletedPomodoros int                 `json:"completedPomodoros"`
	Title              string              `json:"title"`
	SessionID          string              `json:"sessionId,omitempty"`
	LoadedSessionID    string              `json:"loadedSessionId,omitempty"`
	StartedAt          *time.Time          `json:"startedAt,omitempty"`
	Settings           model.TimerSettings `json:"settings"`
}

// Machine is the pomodoro countdown. All state is guarded by mu; the tick
// schedule runs on its own goroutine and re-enters through tickFrom.
type Machine struct {
	mu  sync.Mutex
	cfg Config

	settings  model.TimerSettings
	mode      model.Mode
	remaining int
	running   bool
	completed int
	title     string
	startedAt time.Time

	// sessionID is the open session of the running or paused pomodoro;
	// loaded is a stored session queued for reuse by the next Start.
	sessionID string
	loaded    *model.TimerSession

	generation uint64
	ticker     Ticker
	stopCh     chan struct{}

	pending     []Event
	closed      bool
	unsubscribe []func()
}

func NewMachine(cfg Config) *Machine {
	if cfg.Sink == nil {
		cfg.Sink = discardSink{}
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewRealTicker
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Machine{
		cfg:      cfg,
		settings: cfg.Settings.Get(),
		mode:     model.ModePomodoro,
	}
	m.remaining = m.settings.DurationSeconds(m.mode)

	m.unsubscribe = append(m.unsubscribe,
		cfg.Settings.Subscribe(m.ApplySettings),
		cfg.Principal.Subscribe(func(_ model.Principal, signedIn bool) {
			if !signedIn {
				m.Stop()
			}
		}),
	)
	return m
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := Snapshot{
		Mode:               m.mode,
		SecondsRemaining:   m.remaining,
		Running:            m.running,
		CompletedPomodoros: m.completed,
		Title:              m.sessionTitle(),
		SessionID:          m.sessionID,
		Settings:           m.settings,
	}
	if m.loaded != nil {
		snapshot.LoadedSessionID = m.loaded.ID
	}
	if m.running {
		startedAt := m.startedAt
		snapshot.StartedAt = &startedAt
	}
	return snapshot
}

// Start begins or resumes the countdown. It does nothing without a signed-in
// principal or while already running.
func (m *Machine) Start() {
	m.mu.Lock()
	m.startLocked()
	m.unlockAndFlush()
}

func (m *Machine) Pause() {
	m.mu.Lock()
	m.pauseLocked()
	m.unlockAndFlush()
}

// Stop pauses, drops the session reference without a completion write and
// rewinds the countdown to the mode's full duration.
func (m *Machine) Stop() {
	m.mu.Lock()
	m.stopLocked()
	m.unlockAndFlush()
}

func (m *Machine) Reset() {
	m.Stop()
}

func (m *Machine) SetMode(next model.Mode) {
	m.mu.Lock()
	if !m.closed {
		m.stopLocked()
		m.enterModeLocked(next)
	}
	m.unlockAndFlush()
}

// SetTitle names sessions created from now on.
func (m *Machine) SetTitle(title string) {
	m.mu.Lock()
	m.title = strings.TrimSpace(title)
	m.unlockAndFlush()
}

// Load queues a stored session for reuse: the next pomodoro Start reopens it
// instead of creating a new one.
func (m *Machine) Load(session model.TimerSession) {
	m.mu.Lock()
	if !m.closed {
		m.stopLocked()
		m.mode = model.ModePomodoro
		m.remaining = session.DurationSeconds
		if m.remaining <= 0 {
			m.remaining = m.settings.DurationSeconds(model.ModePomodoro)
		}
		if title := strings.TrimSpace(session.Title); title != "" {
			m.title = title
		}
		m.loaded = &session
	}
	m.unlockAndFlush()
}

// ApplySettings takes new settings. An idle countdown restarts from the new
// duration; a running one keeps counting and only later modes use them.
func (m *Machine) ApplySettings(settings model.TimerSettings) {
	m.mu.Lock()
	if !m.closed {
		m.settings = settings
		if !m.running {
			m.sessionID = ""
			m.loaded = nil
			m.remaining = settings.DurationSeconds(m.mode)
		}
	}
	m.unlockAndFlush()
}

// Tick advances the countdown by one second.
func (m *Machine) Tick() {
	m.mu.Lock()
	m.tickLocked()
	m.unlockAndFlush()
}

// Close tears the machine down: the tick schedule is cancelled, the open
// session is dropped without a completion write and later calls are ignored.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.stopLocked()
	m.closed = true
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.unlockAndFlush()

	for _, fn := range unsubscribe {
		fn()
	}
}

func (m *Machine) startLocked() {
	if m.closed || m.running {
		return
	}
	principal, ok := m.cfg.Principal.Principal()
	if !ok {
		return
	}
	if m.remaining <= 0 {
		m.remaining = m.settings.DurationSeconds(m.mode)
	}

	now := m.cfg.Now()
	m.running = true
	m.startedAt = now

	if m.mode == model.ModePomodoro {
		m.openSessionLocked(principal, now)
	}
	m.scheduleLocked()
}

func (m *Machine) openSessionLocked(principal model.Principal, now time.Time) {
	switch {
	case m.sessionID != "":
		// resuming after a pause keeps the open session
	case m.loaded != nil:
		session := *m.loaded
		session.StartedAt = now
		session.Completed = false
		session.UpdatedAt = now
		m.sessionID = session.ID
		m.loaded = nil
		m.emitLocked(Event{Type: EventSessionResumed, Session: session, At: now})
	default:
		session := model.TimerSession{
			ID:              m.cfg.NewID(),
			UserID:          principal.ID,
			Title:           m.sessionTitle(),
			DurationSeconds: m.remaining,
			StartedAt:       now,
			Completed:       false,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		m.sessionID = session.ID
		m.emitLocked(Event{Type: EventSessionStarted, Session: session, At: now})
	}
}

func (m *Machine) pauseLocked() {
	m.running = false
	m.cancelScheduleLocked()
}

func (m *Machine) stopLocked() {
	m.pauseLocked()
	m.sessionID = ""
	m.loaded = nil
	m.remaining = m.settings.DurationSeconds(m.mode)
}

func (m *Machine) enterModeLocked(next model.Mode) {
	m.mode = next
	m.remaining = m.settings.DurationSeconds(next)
}

func (m *Machine) tickLocked() {
	if m.closed || !m.running {
		return
	}
	if m.remaining > 0 {
		m.remaining--
	}
	if m.remaining == 0 {
		m.completeLocked()
	}
}

func (m *Machine) completeLocked() {
	m.pauseLocked()
	now := m.cfg.Now()

	var next model.Mode
	var autoStart bool
	if m.mode == model.ModePomodoro {
		if m.sessionID != "" {
			m.emitLocked(Event{
				Type:    EventSessionCompleted,
				Session: model.TimerSession{ID: m.sessionID, Completed: true, UpdatedAt: now},
				At:      now,
			})
		}
		m.completed++
		next = model.ModeShortBreak
		if m.completed%model.LongBreakInterval == 0 {
			next = model.ModeLongBreak
		}
		autoStart = m.settings.AutoStartBreaks
	} else {
		next = model.ModePomodoro
		autoStart = m.settings.AutoStartPomodoros
	}

	m.sessionID = ""
	m.enterModeLocked(next)
	if autoStart {
		m.startLocked()
	}
}

func (m *Machine) scheduleLocked() {
	m.cancelScheduleLocked()

	ticker := m.cfg.NewTicker(m.cfg.TickInterval)
	stop := make(chan struct{})
	m.ticker = ticker
	m.stopCh = stop
	go m.run(m.generation, ticker, stop)
}

func (m *Machine) cancelScheduleLocked() {
	m.generation++
	if m.stopCh == nil {
		return
	}
	close(m.stopCh)
	m.ticker.Stop()
	m.stopCh = nil
	m.ticker = nil
}

func (m *Machine) run(generation uint64, ticker Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			m.tickFrom(generation)
		}
	}
}

// tickFrom ignores ticks delivered by a schedule that has since been cancelled.
func (m *Machine) tickFrom(generation uint64) {
	m.mu.Lock()
	if generation == m.generation {
		m.tickLocked()
	}
	m.unlockAndFlush()
}

func (m *Machine) sessionTitle() string {
	if m.title == "" {
		return model.DefaultSessionTitle
	}
	return m.title
}

func (m *Machine) emitLocked(event Event) {
	m.pending = append(m.pending, event)
}

// unlockAndFlush releases mu and hands queued events to the sink outside the lock.
func (m *Machine) unlockAndFlush() {
	events := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, event := range events {
		m.cfg.Sink.Publish(event)
	}
}
