package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"claimdesk/internal/identity/models"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
)

// InMemoryAccountStore keeps accounts in memory, indexed by ID and email.
type InMemoryAccountStore struct {
	mu      sync.RWMutex
	byID    map[id.UserID]models.Account
	byEmail map[string]id.UserID
}

func NewInMemory() *InMemoryAccountStore {
	return &InMemoryAccountStore{
		byID:    make(map[id.UserID]models.Account),
		byEmail: make(map[string]id.UserID),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *InMemoryAccountStore) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := emailKey(account.Email)
	if _, taken := s.byEmail[key]; taken {
		return fmt.Errorf("account email taken: %w", sentinel.ErrConflict)
	}
	if _, exists := s.byID[account.ID]; exists {
		return fmt.Errorf("account %s: %w", account.ID, sentinel.ErrConflict)
	}
	s.byID[account.ID] = *account
	s.byEmail[key] = account.ID
	return nil
}

func (s *InMemoryAccountStore) FindByID(_ context.Context, accountID id.UserID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[accountID]
	if !ok {
		return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
	}
	return &a, nil
}

func (s *InMemoryAccountStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accountID, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
	}
	a := s.byID[accountID]
	return &a, nil
}

func (s *InMemoryAccountStore) Delete(_ context.Context, accountID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[accountID]
	if !ok {
		return fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
	}
	delete(s.byID, accountID)
	delete(s.byEmail, emailKey(a.Email))
	return nil
}

func (s *InMemoryAccountStore) MarkEmailVerified(_ context.Context, accountID id.UserID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[accountID]
	if !ok {
		return fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
	}
	a.MarkEmailVerified(now)
	s.byID[accountID] = a
	return nil
}
