package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"claimdesk/internal/claim/models"
	"claimdesk/pkg/platform/sentinel"
)

// CheckFunc inspects a token before it is consumed. A non-nil error aborts
// the consumption and is returned unchanged.
type CheckFunc func(*models.VerificationToken) error

// InMemoryStore keeps verification tokens keyed by hash. Tokens are never
// deleted; consumption flips Used under the store mutex.
type InMemoryStore struct {
	mu     sync.Mutex
	tokens map[string]models.VerificationToken
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[string]models.VerificationToken)}
}

func (s *InMemoryStore) Create(_ context.Context, token *models.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tokens[token.TokenHash]; exists {
		return fmt.Errorf("token hash collision: %w", sentinel.ErrConflict)
	}
	for _, existing := range s.tokens {
		if existing.ID == token.ID {
			return fmt.Errorf("token %s: %w", token.ID, sentinel.ErrConflict)
		}
	}
	s.tokens[token.TokenHash] = *token
	return nil
}

func (s *InMemoryStore) FindByHash(_ context.Context, tokenHash string) (*models.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok {
		return nil, fmt.Errorf("token not found: %w", sentinel.ErrNotFound)
	}
	return &t, nil
}

// Consume validates and flips the token in one critical section. Expiry is
// reported before prior use, and expired tokens are left unconsumed.
func (s *InMemoryStore) Consume(_ context.Context, tokenHash string, now time.Time, check CheckFunc) (*models.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok {
		return nil, fmt.Errorf("token not found: %w", sentinel.ErrNotFound)
	}
	if check != nil {
		if err := check(&t); err != nil {
			return nil, err
		}
	}
	if t.IsExpired(now) {
		return nil, fmt.Errorf("token expired at %s: %w", t.ExpiresAt.Format(time.RFC3339), sentinel.ErrExpired)
	}
	if t.Used {
		return nil, fmt.Errorf("token consumed: %w", sentinel.ErrAlreadyUsed)
	}
	t.MarkUsed(now)
	s.tokens[tokenHash] = t
	return &t, nil
}

// Count is used by tests asserting tokens are append-only.
func (s *InMemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Restore writes token back as given. It undoes a consumption made inside an
// aborted in-memory transaction.
func (s *InMemoryStore) Restore(_ context.Context, token *models.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.TokenHash] = *token
	return nil
}
