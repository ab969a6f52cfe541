// Package history holds per-session conversation windows in process memory.
// Nothing is persisted; a server restart or a top-level page load wipes it.
package history

import (
	"sync"

	"medichat/internal/models"
)

type session struct {
	mu    sync.Mutex
	turns []models.Turn
}

// Store maps opaque session ids to bounded turn histories. Safe for
// concurrent use: the store mutex guards the session map, each session's own
// mutex makes the read-append-trim sequence atomic per key.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*session)}
}

func (s *Store) get(sessionID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	se, ok := s.sessions[sessionID]
	if !ok {
		se = &session{}
		s.sessions[sessionID] = se
	}
	return se
}

// Get returns a copy of the session's turns, creating the session on first
// access.
func (s *Store) Get(sessionID string) []models.Turn {
	se := s.get(sessionID)
	se.mu.Lock()
	defer se.mu.Unlock()
	out := make([]models.Turn, len(se.turns))
	copy(out, se.turns)
	return out
}

// AppendAndTrim appends the turns and drops the oldest entries beyond max,
// atomically for the session. Order is never changed, only the head is cut.
func (s *Store) AppendAndTrim(sessionID string, turns []models.Turn, max int) {
	if len(turns) == 0 {
		return
	}
	se := s.get(sessionID)
	se.mu.Lock()
	defer se.mu.Unlock()
	se.turns = append(se.turns, turns...)
	if max > 0 && len(se.turns) > max {
		kept := make([]models.Turn, max)
		copy(kept, se.turns[len(se.turns)-max:])
		se.turns = kept
	}
}

// Len reports the session's current turn count without creating it.
func (s *Store) Len(sessionID string) int {
	s.mu.Lock()
	se, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	se.mu.Lock()
	defer se.mu.Unlock()
	return len(se.turns)
}

// ClearAll wipes every session. Called whenever the top-level page is served;
// this resets all conversations, matching the single-user demo behavior.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.sessions = make(map[string]*session)
	s.mu.Unlock()
}
