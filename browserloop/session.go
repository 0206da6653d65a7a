package browserloop

import "sync"

// SessionTracker holds the single active browser session id for a run.
// It starts empty and is set by the dispatcher when the session-opening tool
// succeeds. A run is single-session: in practice Set is called once, though a
// re-launch stores the latest id (latest-wins, matching the endpoint's
// behavior of returning a fresh session per launch).
type SessionTracker struct {
	mu sync.Mutex
	id string
}

// NewSessionTracker creates an empty tracker.
func NewSessionTracker() *SessionTracker {
	return &SessionTracker{}
}

// Get returns the current session id and whether one is known.
func (s *SessionTracker) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.id != ""
}

// Set records the session id returned by the session-opening tool.
func (s *SessionTracker) Set(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}
