package session

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

const (
	// CookieName carries the session token issued at login.
	CookieName = "session"
	// MaxAge is how long a login stays valid.
	MaxAge = 30 * 24 * time.Hour
)

// Store keeps the tokens issued at login. Tokens live in memory only, so a
// restart logs every viewer out.
type Store struct {
	tokens map[string]time.Time // token -> expiry
	clock  clock.Clock
	mu     sync.Mutex
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		tokens: make(map[string]time.Time),
		clock:  clock.New(),
	}
}

// SetClock replaces the clock used for expiry.
func (s *Store) SetClock(c clock.Clock) {
	s.clock = c
}

// Issue creates a new random token valid for MaxAge.
func (s *Store) Issue() string {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.tokens[token] = s.clock.Now().Add(MaxAge)
	return token
}

// Valid reports whether token was issued here and has not expired or been revoked.
func (s *Store) Valid(token string) bool {
	if token == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.tokens[token]
	if !ok {
		return false
	}
	if !s.clock.Now().Before(expiry) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// Revoke forgets token.
func (s *Store) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	return len(s.tokens)
}

func (s *Store) prune() {
	now := s.clock.Now()
	for token, expiry := range s.tokens {
		if !now.Before(expiry) {
			delete(s.tokens, token)
		}
	}
}
