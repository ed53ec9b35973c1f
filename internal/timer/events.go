package timer

import (
	"time"

	"pomodoro/tracker/internal/model"
)

// EventType names a session transition that needs persisting.
type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventSessionResumed   EventType = "session_resumed"
	EventSessionCompleted EventType = "session_completed"
)

// Event is emitted by the Machine on session transitions. Session.ID is always
// set; the remaining fields are filled for started and resumed sessions.
type Event struct {
	Type    EventType
	Session model.TimerSession
	At      time.Time
}

// Sink receives machine events. Publish must not block.
type Sink interface {
	Publish(Event)
}

type discardSink struct{}

func (discardSink) Publish(Event) {}
