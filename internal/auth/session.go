// Package auth holds the signed-in principal for a timer and notifies
// subscribers when it changes.
package auth

import (
	"sync"

	"pomodoro/tracker/internal/model"
)

// Listener receives the principal after every change; ok is false once signed out.
type Listener func(principal model.Principal, ok bool)

type Session struct {
	mu        sync.RWMutex
	principal *model.Principal
	nextID    int
	listeners map[int]Listener
}

func NewSession() *Session {
	return &Session{listeners: make(map[int]Listener)}
}

// NewSignedIn returns a session already holding principal.
func NewSignedIn(principal model.Principal) *Session {
	s := NewSession()
	s.principal = &principal
	return s
}

func (s *Session) Principal() (model.Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == nil {
		return model.Principal{}, false
	}
	return *s.principal, true
}

func (s *Session) SignIn(principal model.Principal) {
	s.mu.Lock()
	s.principal = &principal
	listeners := s.snapshotLocked()
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(principal, true)
	}
}

func (s *Session) SignOut() {
	s.mu.Lock()
	if s.principal == nil {
		s.mu.Unlock()
		return
	}
	s.principal = nil
	listeners := s.snapshotLocked()
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(model.Principal{}, false)
	}
}

// Subscribe registers listener and returns a function that removes it.
func (s *Session) Subscribe(listener Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) snapshotLocked() []Listener {
	listeners := make([]Listener, 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	return listeners
}
