package timer

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"pomodoro/tracker/internal/auth"
	"pomodoro/tracker/internal/model"
)

type manualTicker struct {
	ch chan time.Time

	mu      sync.Mutex
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *manualTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type tickerLog struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (l *tickerLog) factory(time.Duration) Ticker {
	ticker := &manualTicker{ch: make(chan time.Time, 1)}
	l.mu.Lock()
	l.tickers = append(l.tickers, ticker)
	l.mu.Unlock()
	return ticker
}

func (l *tickerLog) all() []*manualTicker {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*manualTicker(nil), l.tickers...)
}

func (l *tickerLog) last() *manualTicker {
	all := l.all()
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Publish(event Event) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func (l *eventLog) count(eventType EventType) int {
	n := 0
	for _, event := range l.all() {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

type fakeSettings struct {
	current   model.TimerSettings
	listeners []func(model.TimerSettings)
}

func (s *fakeSettings) Get() model.TimerSettings { return s.current }

func (s *fakeSettings) Subscribe(listener func(model.TimerSettings)) func() {
	s.listeners = append(s.listeners, listener)
	return func() { s.listeners = nil }
}

func (s *fakeSettings) set(next model.TimerSettings) {
	s.current = next
	for _, listener := range s.listeners {
		listener(next)
	}
}

type harness struct {
	machine  *Machine
	events   *eventLog
	tickers  *tickerLog
	session  *auth.Session
	settings *fakeSettings
}

func newHarness(t *testing.T, settings model.TimerSettings) *harness {
	t.Helper()
	h := &harness{
		events:   &eventLog{},
		tickers:  &tickerLog{},
		session:  auth.NewSignedIn(model.Principal{ID: "user-1", Email: "user@example.com"}),
		settings: &fakeSettings{current: settings},
	}
	ids := 0
	h.machine = NewMachine(Config{
		Settings:  h.settings,
		Principal: h.session,
		Sink:      h.events,
		NewTicker: h.tickers.factory,
		NewID: func() string {
			ids++
			return fmt.Sprintf("session-%d", ids)
		},
	})
	t.Cleanup(h.machine.Close)
	return h
}

func manualSettings(pomodoro, short, long int) model.TimerSettings {
	return model.TimerSettings{
		PomodoroMinutes:   pomodoro,
		ShortBreakMinutes: short,
		LongBreakMinutes:  long,
	}
}

func (h *harness) tick(n int) {
	for i := 0; i < n; i++ {
		h.machine.Tick()
	}
}

func TestInitialState(t *testing.T) {
	h := newHarness(t, model.DefaultTimerSettings())
	snapshot := h.machine.Snapshot()
	if snapshot.Mode != model.ModePomodoro || snapshot.SecondsRemaining != 1500 || snapshot.Running {
		t.Fatalf("unexpected initial snapshot %+v", snapshot)
	}
	if snapshot.Title != model.DefaultSessionTitle {
		t.Fatalf("expected default title, got %q", snapshot.Title)
	}
}

func TestStartThenDurationTicksCompletesOnce(t *testing.T) {
	for _, minutes := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("%dmin", minutes), func(t *testing.T) {
			h := newHarness(t, manualSettings(minutes, 1, 2))
			h.machine.Start()

			h.tick(minutes*60 - 1)
			if got := h.machine.Snapshot().SecondsRemaining; got != 1 {
				t.Fatalf("expected 1 second left, got %d", got)
			}
			if h.events.count(EventSessionCompleted) != 0 {
				t.Fatal("completed before countdown reached zero")
			}

			h.tick(1)
			if h.events.count(EventSessionCompleted) != 1 {
				t.Fatalf("expected exactly one completion, got %d", h.events.count(EventSessionCompleted))
			}
			snapshot := h.machine.Snapshot()
			if snapshot.Running || snapshot.Mode != model.ModeShortBreak || snapshot.SecondsRemaining != 60 {
				t.Fatalf("unexpected snapshot after completion %+v", snapshot)
			}

			h.tick(10)
			if h.events.count(EventSessionCompleted) != 1 {
				t.Fatal("ticks on a stopped countdown must not complete again")
			}
		})
	}
}

func TestDefaultPomodoroScenario(t *testing.T) {
	h := newHarness(t, model.DefaultTimerSettings())
	h.machine.Start()
	h.tick(1500)

	events := h.events.all()
	if len(events) != 2 || events[0].Type != EventSessionStarted || events[1].Type != EventSessionCompleted {
		t.Fatalf("expected started+completed, got %+v", events)
	}
	if events[1].Session.ID != events[0].Session.ID {
		t.Fatalf("completed %s, started %s", events[1].Session.ID, events[0].Session.ID)
	}
	if events[0].Session.DurationSeconds != 1500 || events[0].Session.UserID != "user-1" || events[0].Session.Completed {
		t.Fatalf("unexpected started session %+v", events[0].Session)
	}

	snapshot := h.machine.Snapshot()
	if snapshot.Mode != model.ModeShortBreak || snapshot.SecondsRemaining != 300 {
		t.Fatalf("expected short break with 300s, got %+v", snapshot)
	}
	if !snapshot.Running {
		t.Fatal("expected auto-started break")
	}
	if snapshot.SessionID != "" {
		t.Fatalf("breaks must not hold a session, got %s", snapshot.SessionID)
	}
	if snapshot.CompletedPomodoros != 1 {
		t.Fatalf("expected 1 completed pomodoro, got %d", snapshot.CompletedPomodoros)
	}
}

func TestEveryFourthPomodoroIsFollowedByLongBreak(t *testing.T) {
	settings := manualSettings(1, 1, 2)
	settings.AutoStartBreaks = true
	settings.AutoStartPomodoros = true
	h := newHarness(t, settings)
	h.machine.Start()

	var breaks []model.Mode
	for len(breaks) < 8 {
		before := h.machine.Snapshot()
		h.machine.Tick()
		after := h.machine.Snapshot()
		if before.Mode == model.ModePomodoro && after.Mode != model.ModePomodoro {
			breaks = append(breaks, after.Mode)
		}
	}

	for i, mode := range breaks {
		want := model.ModeShortBreak
		if (i+1)%4 == 0 {
			want = model.ModeLongBreak
		}
		if mode != want {
			t.Fatalf("completion %d: expected %s, got %s", i+1, want, mode)
		}
	}
	if got := h.events.count(EventSessionStarted); got != 8 {
		t.Fatalf("expected a session per pomodoro started (8), got %d", got)
	}
	if got := h.events.count(EventSessionCompleted); got != 8 {
		t.Fatalf("expected 8 completed sessions, got %d", got)
	}
}

func TestStartWithoutPrincipalIsIgnored(t *testing.T) {
	h := newHarness(t, model.DefaultTimerSettings())
	h.session.SignOut()

	h.machine.Start()
	if h.machine.Snapshot().Running {
		t.Fatal("expected timer to stay stopped without principal")
	}
	if len(h.events.all()) != 0 {
		t.Fatalf("expected no session, got %+v", h.events.all())
	}
	if len(h.tickers.all()) != 0 {
		t.Fatal("expected no tick schedule")
	}
}

func TestPauseFreezesCountdown(t *testing.T) {
	h := newHarness(t, model.DefaultTimerSettings())
	h.machine.Start()
	h.tick(3)
	ticker := h.tickers.last()

	h.machine.Pause()
	if !ticker.isStopped() {
		t.Fatal("expected tick schedule cancelled on pause")
	}

	ticker.ch <- time.Now()
	time.Sleep(20 * time.Millisecond)
	h.tick(5)

	snapshot := h.machine.Snapshot()
	if snapshot.Running || snapshot.SecondsRemaining != 1497 {
		t.Fatalf("expected paused at 1497, got %+v", snapshot)
	}
	if snapshot.SessionID == "" {
		t.Fatal("pause must keep the open session")
	}
}

func TestResumeAfterPauseKeepsSession(t *testing.T) {
	h := newHarness(t, manualSettings(1, 1, 1))
	h.machine.Start()
	h.tick(10)
	h.machine.Pause()
	h.machine.Start()
	h.tick(50)

	if got := h.events.count(EventSessionStarted); got != 1 {
		t.Fatalf("expected one session for a paused and resumed pomodoro, got %d", got)
	}
	if got := h.events.count(EventSessionCompleted); got != 1 {
		t.Fatalf("expected completion, got %d", got)
	}
}

func TestSetModeWhileRunningStopsAndResets(t *testing.T) {
	h := newHarness(t, model.DefaultTimerSettings())
	h.machine.Start()
	h.tick(42)
	ticker := h.tickers.last()

	h.machine.SetMode(model.ModeLongBreak)
	snapshot := h.machine.Snapshot()
	if snapshot.Running || snapshot.Mode != model.ModeLongBreak || snapshot.SecondsRemaining != 900 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if !ticker.isStopped() {
		t.Fatal("expected tick schedule cancelled on mode change")
	}
	if snapshot.SessionID != "" || h.events.count(EventSessionCompleted) != 0 {
		t.Fatal("mode change must drop the session without completing it")
	}
}

func TestBreakModesCreateNoSession(t *testing.T) {
	h := newHarness(t, manualSettings(1, 1, 1))
	h.machine.SetMode(model.ModeShortBreak)
	h.machine.Start()
	h.tick(60)

	if len(h.events.all()) != 0 {
		t.Fatalf("expected no session events for a break, got %+v", h.events.all())
	}
	if got := h.machine.Snapshot().Mode; got != model.ModePomodoro {
		t.Fatalf("expected pomodoro after break, got %s", got)
	}
}

func TestBreakCompletionFollowsAutoStartPomodoros(t *testing.T) {
	tests := []struct {
		name        string
		autoStart   bool
		wantRunning bool
		wantStarted int
	}{
		{"auto start off leaves pomodoro idle", false, false, 1},
		{"auto start on begins next pomodoro", true, true, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			settings := manualSettings(1, 1, 1)
			settings.AutoStartBreaks = true
			settings.AutoStartPomodoros = tc.autoStart
			h := newHarness(t, settings)
			h.machine.Start()

			h.tick(60)
			if snapshot := h.machine.Snapshot(); snapshot.Mode != model.ModeShortBreak || !snapshot.Running {
				t.Fatalf("expected running short break, got %+v", snapshot)
			}

			h.tick(60)
			snapshot := h.machine.Snapshot()
			if snapshot.Mode != model.ModePomodoro || snapshot.Running != tc.wantRunning || snapshot.SecondsRemaining != 60 {
				t.Fatalf("unexpected snapshot after break %+v", snapshot)
			}
			if got := h.events.count(EventSessionStarted); got != tc.wantStarted {
				t.Fatalf("expected %d started sessions, got %d", tc.wantStarted, got)
			}

			if !tc.autoStart {
				h.tick(5)
				if got := h.machine.Snapshot().SecondsRemaining; got != 60 {
					t.Fatalf("idle pomodoro must not count down, got %d", got)
				}
				if got := h.events.count(EventSessionCompleted); got != 1 {
					t.Fatalf("expected only the first pomodoro completed, got %d", got)
				}
			}
		})
	}
}

func TestStopDropsSessionWithoutCompletion(t *testing.T) {
	h := newHarness(t, model.DefaultTimerSettings())
	h.machine.Start()
	h.tick(100)
	h.machine.Stop()

	snapshot := h.machine.Snapshot()
	if snapshot.Running || snapshot.SecondsRemaining != 1500 || snapshot.SessionID != "" {
		t.Fatalf("unexpected snapshot after stop %+v", snapshot)
	}
	if h.events.count(EventSessionCompleted) != 0 {
		t.Fatal("stop must not write a completion")
	}

	h.machine.Reset()
	h.machine.Start()
	if got := h.events.count(EventSessionStarted); got != 2 {
		t.Fatalf("expected a new session after stop, got %d", got)
	}
}

func TestLoadThenStartReusesSession(t *testing.T) {
	h := newHarness(t, model.DefaultTimerSettings())
	existing := model.TimerSession{
		ID:              "existing",
		UserID:          "user-1",
		Title:           "Write report",
		DurationSeconds: 600,
		StartedAt:       time.Now().Add(-24 * time.Hour),
		Completed:       true,
	}

	h.machine.Load(existing)
	snapshot := h.machine.Snapshot()
	if snapshot.LoadedSessionID != "existing" || snapshot.SecondsRemaining != 600 || snapshot.Title != "Write report" {
		t.Fatalf("unexpected snapshot after load %+v", snapshot)
	}

	h.machine.Start()
	h.tick(600)

	events := h.events.all()
	if len(events) != 2 {
		t.Fatalf("expected resumed+completed, got %+v", events)
	}
	if events[0].Type != EventSessionResumed || events[0].Session.ID != "existing" || events[0].Session.Completed {
		t.Fatalf("expected resume of existing session, got %+v", events[0])
	}
	if !events[0].Session.StartedAt.After(existing.StartedAt) {
		t.Fatal("expected refreshed start time")
	}
	if events[1].Type != EventSessionCompleted || events[1].Session.ID != "existing" {
		t.Fatalf("expected completion of existing session, got %+v", events[1])
	}
	if h.events.count(EventSessionStarted) != 0 {
		t.Fatal("load must not create a new row")
	}
}

func TestSignOutCancelsScheduleAndDropsSession(t *testing.T) {
	h := newHarness(t, model.DefaultTimerSettings())
	h.machine.Start()
	h.tick(10)
	ticker := h.tickers.last()

	h.session.SignOut()

	snapshot := h.machine.Snapshot()
	if snapshot.Running || snapshot.SessionID != "" {
		t.Fatalf("expected stopped timer without session, got %+v", snapshot)
	}
	if !ticker.isStopped() {
		t.Fatal("expected tick schedule cancelled on sign out")
	}
	if h.events.count(EventSessionCompleted) != 0 {
		t.Fatal("sign out must not write a completion")
	}
}

func TestCloseCancelsScheduleAndIgnoresLaterCalls(t *testing.T) {
	h := newHarness(t, model.DefaultTimerSettings())
	h.machine.Start()
	ticker := h.tickers.last()

	h.machine.Close()
	if !ticker.isStopped() {
		t.Fatal("expected tick schedule cancelled on close")
	}

	h.machine.Start()
	h.tick(5)
	if snapshot := h.machine.Snapshot(); snapshot.Running || snapshot.SecondsRemaining != 1500 {
		t.Fatalf("expected inert machine after close, got %+v", snapshot)
	}
	if len(h.tickers.all()) != 1 {
		t.Fatal("closed machine must not schedule ticks")
	}

	h.settings.set(manualSettings(10, 1, 1))
	if got := h.machine.Snapshot().SecondsRemaining; got != 1500 {
		t.Fatalf("closed machine must ignore settings, got %d", got)
	}
}

func TestApplySettingsOnlyResetsIdleCountdown(t *testing.T) {
	h := newHarness(t, model.DefaultTimerSettings())

	h.settings.set(manualSettings(30, 5, 15))
	if got := h.machine.Snapshot().SecondsRemaining; got != 1800 {
		t.Fatalf("expected idle countdown to follow settings, got %d", got)
	}

	h.machine.Start()
	h.tick(100)
	h.settings.set(manualSettings(10, 2, 20))
	snapshot := h.machine.Snapshot()
	if !snapshot.Running || snapshot.SecondsRemaining != 1700 {
		t.Fatalf("running countdown must keep its time, got %+v", snapshot)
	}

	h.tick(1700)
	if got := h.machine.Snapshot().SecondsRemaining; got != 120 {
		t.Fatalf("expected next mode to use new short break (120s), got %d", got)
	}
}

func TestScheduledTicksDriveCountdown(t *testing.T) {
	h := newHarness(t, model.DefaultTimerSettings())
	h.machine.Start()
	ticker := h.tickers.last()

	for i := 0; i < 3; i++ {
		ticker.ch <- time.Now()
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.machine.Snapshot().SecondsRemaining > 1497 {
		if time.Now().After(deadline) {
			t.Fatalf("scheduled ticks not applied, remaining %d", h.machine.Snapshot().SecondsRemaining)
		}
		time.Sleep(time.Millisecond)
	}
}
