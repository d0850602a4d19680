// Package session keeps per-session query histories in memory for the
// process lifetime. Concurrent appends and reads for the same session id are
// serialized with a per-session lock so a read-modify-write never observes a
// torn history.
package session

import (
	"sync"
	"time"
)

// Entry is one stored query with the time the server received it.
type Entry struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// Store maps session ids to their accumulated query history.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*history
}

type history struct {
	mu      sync.Mutex
	entries []Entry
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*history)}
}

// Append adds an entry to the named session and returns a copy of the full
// accumulated history including the new entry. The copy is taken under the
// session's lock, so callers can model it without racing later appends.
func (s *Store) Append(id string, e Entry) []Entry {
	h := s.session(id)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	return copyEntries(h.entries)
}

// Get returns a copy of the named session's history, or nil for an unknown
// session.
func (s *Store) Get(id string) []Entry {
	s.mu.RLock()
	h, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyEntries(h.entries)
}

// Count returns the number of sessions currently tracked.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// session returns the history for id, creating it if needed.
func (s *Store) session(id string) *history {
	s.mu.RLock()
	h, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return h
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok = s.sessions[id]; ok {
		return h
	}
	h = &history{}
	s.sessions[id] = h
	return h
}

func copyEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
