package trie

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Session allocates sequence IDs for every node created during one build.
// IDs are strictly increasing and never reused within a session. A session
// may be shared by several tries; allocation is atomic.
type Session struct {
	id   string
	last atomic.Uint64
}

// NewSession starts a fresh build session whose first ID is 1.
func NewSession() *Session {
	return &Session{id: uuid.NewString()}
}

// ResumeSession continues a persisted session. The next allocated ID is
// last+1.
func ResumeSession(id string, last uint64) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	s := &Session{id: id}
	s.last.Store(last)
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Next allocates the next sequence ID.
func (s *Session) Next() uint64 { return s.last.Add(1) }

// Last returns the most recently allocated sequence ID, or 0.
func (s *Session) Last() uint64 { return s.last.Load() }

// observe moves the counter past seq so restored IDs are never handed out
// again.
func (s *Session) observe(seq uint64) {
	for {
		cur := s.last.Load()
		if seq <= cur || s.last.CompareAndSwap(cur, seq) {
			return
		}
	}
}
