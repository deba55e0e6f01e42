// Package session holds per-conversation state shared by tool calls: the
// active snapshot that queries default to.
//
// One Session belongs to one MCP server process or one chat conversation.
// Concurrent callers are safe but unordered: the last Set wins.
package session

import "sync"

// Session tracks the active snapshot.
type Session struct {
	mu       sync.RWMutex
	snapshot string
}

// New returns a session starting on snapshot (a concrete id or an alias).
func New(snapshot string) *Session {
	return &Session{snapshot: snapshot}
}

// Snapshot returns the active snapshot.
func (s *Session) Snapshot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Set replaces the active snapshot and returns the previous one.
func (s *Session) Set(snapshot string) (old string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, s.snapshot = s.snapshot, snapshot
	return old
}

// Or returns override when non-empty, otherwise the active snapshot.
func (s *Session) Or(override string) string {
	if override != "" {
		return override
	}
	return s.Snapshot()
}
