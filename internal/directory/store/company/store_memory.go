package company

import (
	"context"
	"fmt"
	"sync"
	"time"

	"claimdesk/internal/directory/models"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
)

// InMemoryStore keeps companies in memory for tests and local runs. Records are
// copied in and out so callers never share state with the store.
type InMemoryStore struct {
	mu        sync.RWMutex
	companies map[id.CompanyID]models.Company
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{companies: make(map[id.CompanyID]models.Company)}
}

func (s *InMemoryStore) Create(_ context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.companies[company.ID]; exists {
		return fmt.Errorf("company %s: %w", company.ID, sentinel.ErrConflict)
	}
	s.companies[company.ID] = *company
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, companyID id.CompanyID) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[companyID]
	if !ok {
		return nil, fmt.Errorf("company not found: %w", sentinel.ErrNotFound)
	}
	return &c, nil
}

// MarkClaimed flips Claimed under the store lock. Already claimed companies
// report ErrConflict and are left untouched.
func (s *InMemoryStore) MarkClaimed(_ context.Context, companyID id.CompanyID, claimedByName string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[companyID]
	if !ok {
		return fmt.Errorf("company not found: %w", sentinel.ErrNotFound)
	}
	if err := c.MarkClaimed(claimedByName, now); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrConflict)
	}
	s.companies[companyID] = c
	return nil
}

// Restore writes company back as given. It undoes writes of an aborted
// in-memory transaction.
func (s *InMemoryStore) Restore(_ context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[company.ID] = *company
	return nil
}
