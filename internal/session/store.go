// Package session keeps per-conversation message history in process memory.
// History is append-only for the life of a session; only a bounded window
// of recent turns is handed to the language-model collaborator.
package session

import (
	"sync"
	"time"

	"github.com/monetizerai/creatorchat/internal/core"
	"github.com/monetizerai/creatorchat/internal/logging"
)

// Window is the number of trailing messages sent to the collaborator. The
// full history is retained and reported regardless.
const Window = 10

// Session is one conversation. All access goes through its own lock, so
// appends within a session are ordered and unrelated sessions never
// contend.
type Session struct {
	mu         sync.Mutex
	creator    string
	messages   []core.Message
	lastActive time.Time
}

// Creator returns the creator name bound at first use.
func (s *Session) Creator() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creator
}

// Append adds one message and returns the new history length.
func (s *Session) Append(role, content string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, core.Message{Role: role, Content: content})
	s.lastActive = time.Now()
	return len(s.messages)
}

// Len returns the full history length.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Recent returns a copy of the last Window messages.
func (s *Session) Recent() []core.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if len(s.messages) > Window {
		start = len(s.messages) - Window
	}
	out := make([]core.Message, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive.Before(cutoff)
}

// Store owns all live sessions. Sessions are created lazily on first
// reference and evicted only by the idle-TTL janitor (or never, when the
// TTL is zero).
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTTL time.Duration
	stop    chan struct{}
	stopped sync.Once
}

// NewStore creates the store and, when idleTTL > 0, starts the eviction
// janitor.
func NewStore(idleTTL time.Duration) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		stop:     make(chan struct{}),
	}
	if idleTTL > 0 {
		go s.janitor()
	}
	return s
}

// GetOrCreate returns the session for id, creating it bound to creator on
// first reference.
func (s *Store) GetOrCreate(id, creator string) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess = &Session{creator: creator, lastActive: time.Now()}
	s.sessions[id] = sess
	return sess
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the janitor.
func (s *Store) Close() {
	s.stopped.Do(func() { close(s.stop) })
}

func (s *Store) janitor() {
	interval := s.idleTTL / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.sweep(time.Now()); n > 0 {
				logging.Default().Info("evicted idle sessions", "count", n)
			}
		}
	}
}

// sweep drops sessions idle longer than the TTL and returns how many went.
func (s *Store) sweep(now time.Time) int {
	cutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, sess := range s.sessions {
		if sess.idleSince(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}
