package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
	"github.com/yigit/campuskizuna/internal/pkg/cache"
)

// SessionStore persists state machine sessions. Get returns
// apperrors.ErrSessionNotFound for unknown or expired ids.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error
	// DeleteExpired purges sessions past their expiry and returns how many went.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// MemorySessionStore keeps sessions in process memory
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	now      func() time.Time
}

// NewMemorySessionStore creates an empty store
func NewMemorySessionStore(now func() time.Time) *MemorySessionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{
		sessions: make(map[string]models.Session),
		now:      now,
	}
}

// Get returns a copy of the session
func (s *MemorySessionStore) Get(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || session.ExpiredAt(s.now()) {
		return nil, apperrors.ErrSessionNotFound
	}
	if session.Registration != nil {
		reg := *session.Registration
		session.Registration = &reg
	}
	return &session, nil
}

// Save stores a copy of the session
func (s *MemorySessionStore) Save(_ context.Context, session *models.Session) error {
	stored := *session
	if session.Registration != nil {
		reg := *session.Registration
		stored.Registration = &reg
	}

	s.mu.Lock()
	s.sessions[session.ID] = stored
	s.mu.Unlock()
	return nil
}

// Delete drops the session; unknown ids are ignored
func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// DeleteExpired purges expired sessions
func (s *MemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.ExpiredAt(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

const sessionKeyPrefix = "session:"

// RedisSessionStore keeps sessions in redis with a TTL matching their expiry
type RedisSessionStore struct {
	cache *cache.RedisCache
	now   func() time.Time
}

// NewRedisSessionStore creates a store on top of the cache
func NewRedisSessionStore(c *cache.RedisCache, now func() time.Time) *RedisSessionStore {
	if now == nil {
		now = time.Now
	}
	return &RedisSessionStore{cache: c, now: now}
}

// Get loads the session
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := s.cache.GetJSON(ctx, sessionKeyPrefix+id, &session); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session %q: %w", id, err)
	}
	if session.ExpiredAt(s.now()) {
		return nil, apperrors.ErrSessionNotFound
	}
	return &session, nil
}

// Save writes the session with a TTL up to its expiry
func (s *RedisSessionStore) Save(ctx context.Context, session *models.Session) error {
	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = session.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return s.Delete(ctx, session.ID)
		}
	}
	if err := s.cache.SetJSON(ctx, sessionKeyPrefix+session.ID, session, ttl); err != nil {
		return fmt.Errorf("save session %q: %w", session.ID, err)
	}
	return nil
}

// Delete removes the session key
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, sessionKeyPrefix+id)
}

// DeleteExpired is a no-op: redis expires the keys itself
func (s *RedisSessionStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
