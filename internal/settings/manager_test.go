package settings

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pomodoro/tracker/internal/model"
)

type memoryStore struct {
	values  map[string]string
	failSet bool
	getErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
	if s.failSet {
		return errors.New("store unavailable")
	}
	s.values[key] = value
	return nil
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestLoadFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	tests := map[string]string{
		"malformed":    "{not json",
		"non-positive": `{"pomodoroMinutes":0,"shortBreakMinutes":5,"longBreakMinutes":15}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			store := newMemoryStore()
			store.values[Key] = raw
			got, err := NewManager(store).Load(ctx)
			if err != nil || got != model.DefaultTimerSettings() {
				t.Fatalf("expected defaults, got %+v", got)
			}
		})
	}

	got, err := NewManager(newMemoryStore()).Load(ctx)
	if err != nil || got != model.DefaultTimerSettings() {
		t.Fatalf("expected defaults for empty store, got %+v", got)
	}
}

func TestUpdateMergesPersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	manager := NewManager(store)

	var notified []model.TimerSettings
	manager.Subscribe(func(s model.TimerSettings) { notified = append(notified, s) })

	updated, err := manager.Update(ctx, Patch{PomodoroMinutes: intPtr(50), AutoStartBreaks: boolPtr(false)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PomodoroMinutes != 50 || updated.ShortBreakMinutes != 5 || updated.AutoStartBreaks {
		t.Fatalf("unexpected merged settings %+v", updated)
	}
	if len(notified) != 1 || notified[0] != updated {
		t.Fatalf("expected one notification with merged settings, got %v", notified)
	}

	reloaded, err := NewManager(store).Load(ctx)
	if err != nil || reloaded != updated {
		t.Fatalf("expected persisted %+v, got %+v", updated, reloaded)
	}
}

func TestUpdateRejectsNonPositiveDurations(t *testing.T) {
	manager := NewManager(newMemoryStore())
	_, err := manager.Update(context.Background(), Patch{LongBreakMinutes: intPtr(-1)})
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	if manager.Get() != model.DefaultTimerSettings() {
		t.Fatalf("settings changed after rejected update: %+v", manager.Get())
	}
}

func TestUpdateKeepsInMemoryValueWhenStoreFails(t *testing.T) {
	store := newMemoryStore()
	store.failSet = true
	manager := NewManager(store)

	updated, err := manager.Update(context.Background(), Patch{ShortBreakMinutes: intPtr(7)})
	if err != nil {
		t.Fatalf("store failure must not surface: %v", err)
	}
	if updated.ShortBreakMinutes != 7 || manager.Get().ShortBreakMinutes != 7 {
		t.Fatalf("expected in-memory update, got %+v", manager.Get())
	}
}

func TestFileStoreRoundTripAndCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	store := NewFileStore(path)

	if _, ok, err := store.Get(ctx, Key); err != nil || ok {
		t.Fatalf("expected missing key on absent file, got ok=%v err=%v", ok, err)
	}

	manager := NewManager(store)
	if _, err := manager.Update(ctx, Patch{PomodoroMinutes: intPtr(30)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, err := NewManager(NewFileStore(path)).Load(ctx); err != nil || got.PomodoroMinutes != 30 {
		t.Fatalf("expected 30 from file, got %+v (%v)", got, err)
	}

	if err := os.WriteFile(path, []byte("timer_settings: [unterminated"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if got, err := NewManager(NewFileStore(path)).Load(ctx); err != nil || got != model.DefaultTimerSettings() {
		t.Fatalf("expected defaults for corrupt file, got %+v (%v)", got, err)
	}
	if err := store.Set(ctx, "other", "value"); err != nil {
		t.Fatalf("set over corrupt file: %v", err)
	}
	if value, ok, err := store.Get(ctx, "other"); err != nil || !ok || value != "value" {
		t.Fatalf("expected rewritten file, got %q ok=%v err=%v", value, ok, err)
	}
}

func TestLoadReturnsReadErrorsAndKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	manager := NewManager(store)
	if _, err := manager.Update(ctx, Patch{ShortBreakMinutes: intPtr(10), LongBreakMinutes: intPtr(30)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	store.getErr = context.Canceled
	got, err := manager.Load(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected read error, got %v", err)
	}
	if got.ShortBreakMinutes != 10 || manager.Get().LongBreakMinutes != 30 {
		t.Fatalf("failed load must keep current settings, got %+v", manager.Get())
	}

	fresh := NewManager(store)
	if _, err := fresh.Load(ctx); err == nil {
		t.Fatal("expected read error on a fresh manager")
	}
}

// gatedStore blocks the first Set until release is closed.
type gatedStore struct {
	mu      sync.Mutex
	values  map[string]string
	sets    int
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *gatedStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.sets++
	first := s.sets == 1
	s.mu.Unlock()

	if first {
		close(s.entered)
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func TestOverlappingUpdatesPersistAndNotifyInOrder(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{
		values:  map[string]string{},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	manager := NewManager(store)

	var notifyMu sync.Mutex
	var notified []int
	manager.Subscribe(func(s model.TimerSettings) {
		notifyMu.Lock()
		notified = append(notified, s.PomodoroMinutes)
		notifyMu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = manager.Update(ctx, Patch{PomodoroMinutes: intPtr(30)})
	}()
	<-store.entered

	go func() {
		defer wg.Done()
		_, _ = manager.Update(ctx, Patch{PomodoroMinutes: intPtr(40)})
	}()
	// give the second update a chance to race ahead of the blocked save
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	var stored model.TimerSettings
	raw, _, _ := store.Get(ctx, Key)
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("decode stored settings: %v", err)
	}
	current := manager.Get()
	if stored != current {
		t.Fatalf("stored %+v diverged from in-memory %+v", stored, current)
	}

	notifyMu.Lock()
	defer notifyMu.Unlock()
	if len(notified) != 2 || notified[1] != current.PomodoroMinutes {
		t.Fatalf("expected last notification %d, got %v", current.PomodoroMinutes, notified)
	}
}
