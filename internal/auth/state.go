package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultStateTTL bounds how long an issued state may wait for its callback.
const DefaultStateTTL = 10 * time.Minute

// StateStore issues and single-use validates anti-forgery state values.
type StateStore interface {
	// Issue records a fresh unpredictable value as pending.
	Issue(ctx context.Context) (string, error)
	// Consume reports whether state was pending and removes it. The error is
	// reserved for backend failures.
	Consume(ctx context.Context, state string) (bool, error)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MemoryStateStore keeps pending states in process memory. Pending values do
// not survive a restart and are not shared between instances.
type MemoryStateStore struct {
	states map[string]time.Time
	mutex  sync.Mutex
	ttl    time.Duration
	now    func() time.Time
}

func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &MemoryStateStore{
		states: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *MemoryStateStore) Issue(ctx context.Context) (string, error) {
	logger := slog.With("component", "state_store", "operation", "issue", "backend", "memory")

	state, err := generateState()
	if err != nil {
		logger.Error("Failed to generate random bytes for state token", "error", err)
		return "", err
	}

	s.mutex.Lock()
	s.states[state] = s.now()
	s.mutex.Unlock()

	logger.Debug("OAuth state token generated and stored", "state_length", len(state))

	return state, nil
}

func (s *MemoryStateStore) Consume(ctx context.Context, state string) (bool, error) {
	logger := slog.With("component", "state_store", "operation", "consume", "backend", "memory")

	if state == "" {
		return false, nil
	}

	s.mutex.Lock()
	createdAt, exists := s.states[state]
	if exists {
		// Remove immediately (one-time use), even when expired
		delete(s.states, state)
	}
	s.mutex.Unlock()

	if !exists {
		logger.Debug("Unknown or already consumed state token")
		return false, nil
	}

	if age := s.now().Sub(createdAt); age > s.ttl {
		logger.Debug("Expired state token", "age_seconds", age.Seconds())
		return false, nil
	}

	return true, nil
}

// Start sweeps expired states until ctx is cancelled.
func (s *MemoryStateStore) Start(ctx context.Context) {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	logger := slog.With("component", "state_store", "operation", "cleanup")
	logger.Debug("Starting state cleanup goroutine")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Stopping state cleanup goroutine")
			return
		case <-ticker.C:
			s.cleanupExpiredStates()
		}
	}
}

func (s *MemoryStateStore) cleanupExpiredStates() {
	logger := slog.With("component", "state_store", "operation", "cleanup_expired")

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	expiredCount := 0

	for state, createdAt := range s.states {
		if now.Sub(createdAt) > s.ttl {
			delete(s.states, state)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		logger.Debug("Cleaned up expired state tokens",
			"expired_count", expiredCount,
			"remaining_count", len(s.states))
	}
}

// Len returns the number of pending states.
func (s *MemoryStateStore) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.states)
}
