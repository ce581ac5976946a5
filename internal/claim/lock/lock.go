// Package lock serializes claim submissions per company. Contention is
// reported as sentinel.ErrConflict; callers do not wait for the holder.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"claimdesk/pkg/platform/sentinel"
)

// ReleaseFunc gives the lock back. Releasing an expired or foreign lock is a
// no-op.
type ReleaseFunc func(ctx context.Context) error

const keyPrefix = "claimdesk:claim-submit:"

// Key is the lock name for a company.
func Key(companyID string) string {
	return keyPrefix + companyID
}

type held struct {
	owner     string
	expiresAt time.Time
}

// InMemoryLocker is a process-local lock table with expiry.
type InMemoryLocker struct {
	mu    sync.Mutex
	locks map[string]held
	now   func() time.Time
}

func NewInMemory() *InMemoryLocker {
	return &InMemoryLocker{locks: make(map[string]held), now: time.Now}
}

// WithClock overrides the time source used for expiry.
func (l *InMemoryLocker) WithClock(now func() time.Time) *InMemoryLocker {
	l.now = now
	return l
}

func (l *InMemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if h, ok := l.locks[key]; ok && now.Before(h.expiresAt) {
		return nil, fmt.Errorf("lock %s is held: %w", key, sentinel.ErrConflict)
	}
	owner := uuid.NewString()
	l.locks[key] = held{owner: owner, expiresAt: now.Add(ttl)}
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if h, ok := l.locks[key]; ok && h.owner == owner {
			delete(l.locks, key)
		}
		return nil
	}, nil
}
