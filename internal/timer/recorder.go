package timer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"pomodoro/tracker/internal/model"
)

// SessionStore is the persistence the recorder writes session transitions to.
type SessionStore interface {
	InsertSession(ctx context.Context, session *model.TimerSession) error
	ResumeSession(ctx context.Context, id string, startedAt time.Time) error
	CompleteSession(ctx context.Context, id string, completedAt time.Time) error
}

var ErrQueueFull = errors.New("session recorder queue full")

// Result reports the outcome of persisting one event.
type Result struct {
	Event Event
	Err   error
}

type RecorderOptions struct {
	QueueSize    int
	ResultBuffer int
	WriteTimeout time.Duration
}

// Recorder persists machine events on a single worker goroutine, in the order
// they were published. Failures are logged and reported on Results; they never
// reach the machine.
type Recorder struct {
	store   SessionStore
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	queue   chan Event
	results chan Result
	done    chan struct{}
}

func NewRecorder(store SessionStore, opts RecorderOptions) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		store:   store,
		timeout: opts.WriteTimeout,
		queue:   make(chan Event, opts.QueueSize),
		done:    make(chan struct{}),
	}
	if opts.ResultBuffer > 0 {
		r.results = make(chan Result, opts.ResultBuffer)
	}

	go r.run()
	return r
}

// Results returns the outcome channel, or nil when RecorderOptions.ResultBuffer
// was zero. Results are dropped when the buffer is full.
func (r *Recorder) Results() <-chan Result {
	return r.results
}

// Publish queues event without blocking.
func (r *Recorder) Publish(event Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		log.Printf("recorder: dropped %s for session %s after close", event.Type, event.Session.ID)
		return
	}

	select {
	case r.queue <- event:
	default:
		log.Printf("recorder: dropped %s for session %s: %v", event.Type, event.Session.ID, ErrQueueFull)
		r.report(Result{Event: event, Err: ErrQueueFull})
	}
}

// Close stops accepting events and waits for the queued ones to be written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	defer func() {
		if r.results != nil {
			close(r.results)
		}
	}()

	for event := range r.queue {
		err := r.write(event)
		if err != nil {
			log.Printf("recorder: %s for session %s failed: %v", event.Type, event.Session.ID, err)
		}
		r.report(Result{Event: event, Err: err})
	}
}

func (r *Recorder) write(event Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	switch event.Type {
	case EventSessionStarted:
		session := event.Session
		return r.store.InsertSession(ctx, &session)
	case EventSessionResumed:
		return r.store.ResumeSession(ctx, event.Session.ID, event.Session.StartedAt)
	case EventSessionCompleted:
		return r.store.CompleteSession(ctx, event.Session.ID, event.At)
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
}

func (r *Recorder) report(result Result) {
	if r.results == nil {
		return
	}
	select {
	case r.results <- result:
	default:
	}
}
