package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/psikotes-proctor/internal/config"
)

// ErrSessionLocked is returned when another connection already holds the session.
var ErrSessionLocked = errors.New("session already active on another connection")

const (
	refreshScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`
	releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`
)

type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// SessionLockService keeps a token bound to at most one live connection.
type SessionLockService struct {
	rdb lockClient
	ttl time.Duration
	log zerolog.Logger
}

// NewSessionLockService creates a new SessionLockService.
func NewSessionLockService(rdb lockClient, ttl time.Duration, log zerolog.Logger) *SessionLockService {
	return &SessionLockService{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "session_lock").Logger(),
	}
}

// SessionLock is a held lock. Only the holder's owner ID can refresh or release it.
type SessionLock struct {
	svc     *SessionLockService
	key     string
	ownerID string
}

// Acquire takes the lock for tokenHash or returns ErrSessionLocked.
func (s *SessionLockService) Acquire(ctx context.Context, tokenHash string) (*SessionLock, error) {
	key := config.CacheKey.SessionLockKey(tokenHash)
	ownerID := uuid.NewString()

	ok, err := s.rdb.SetNX(ctx, key, ownerID, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return nil, ErrSessionLocked
	}
	return &SessionLock{svc: s, key: key, ownerID: ownerID}, nil
}

// TTL is the lock lifetime; holders refresh well within it.
func (s *SessionLockService) TTL() time.Duration {
	return s.ttl
}

// Refresh extends the lock. It fails with ErrSessionLocked if the lock expired
// and was taken by another connection.
func (l *SessionLock) Refresh(ctx context.Context) error {
	n, err := l.svc.rdb.Eval(ctx, refreshScript, []string{l.key}, l.ownerID, l.svc.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("refresh session lock: %w", err)
	}
	if n == 0 {
		return ErrSessionLocked
	}
	return nil
}

// Release drops the lock if still owned. Errors are logged only.
func (l *SessionLock) Release(ctx context.Context) {
	if err := l.svc.rdb.Eval(ctx, releaseScript, []string{l.key}, l.ownerID).Err(); err != nil {
		l.svc.log.Warn().Err(err).Str("key", l.key).Msg("Failed to release session lock")
	}
}

// Hold refreshes the lock every third of its TTL until ctx is done. lost is
// called once if the lock can no longer be kept.
func (l *SessionLock) Hold(ctx context.Context, lost func(error)) {
	interval := l.svc.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				l.svc.log.Warn().Err(err).Str("key", l.key).Msg("Session lock lost")
				if lost != nil {
					lost(err)
				}
				return
			}
		}
	}
}
