package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/clock"
)

// MemoryStore keeps sessions in process memory. Suitable for a single node
// and for tests.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	clock    clock.Clock
	sessions map[string]Session
}

func NewMemoryStore(ttl time.Duration, clk clock.Clock) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &MemoryStore{
		ttl:      ttl,
		clock:    clk,
		sessions: make(map[string]Session),
	}
}

func (s *MemoryStore) Issue(ctx context.Context, id Identity) (Session, error) {
	sess := Session{
		Token:     uuid.NewString(),
		Identity:  id,
		ExpiresAt: s.clock.Now().Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *MemoryStore) Resolve(ctx context.Context, token string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return Identity{}, ErrSessionNotFound
	}
	if !s.clock.Now().Before(sess.ExpiresAt) {
		delete(s.sessions, token)
		return Identity{}, ErrSessionNotFound
	}
	return sess.Identity, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired sessions and reports how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for token, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
