package claimrequest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"claimdesk/internal/claim/models"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
)

// InMemoryStore keeps claim requests in memory. At most one pending claim per
// company is enforced under the store mutex.
type InMemoryStore struct {
	mu     sync.RWMutex
	claims map[id.ClaimRequestID]models.ClaimRequest
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{claims: make(map[id.ClaimRequestID]models.ClaimRequest)}
}

func (s *InMemoryStore) Create(_ context.Context, claim *models.ClaimRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.claims[claim.ID]; exists {
		return fmt.Errorf("claim request %s: %w", claim.ID, sentinel.ErrConflict)
	}
	if claim.Status == models.StatusPending {
		for _, existing := range s.claims {
			if existing.CompanyID == claim.CompanyID && existing.Status == models.StatusPending {
				return fmt.Errorf("company %s already has a pending claim: %w", claim.CompanyID, sentinel.ErrConflict)
			}
		}
	}
	s.claims[claim.ID] = *claim
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, claimID id.ClaimRequestID) (*models.ClaimRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[claimID]
	if !ok {
		return nil, fmt.Errorf("claim request not found: %w", sentinel.ErrNotFound)
	}
	return &c, nil
}

// ListByCompany returns the company's claims in any of statuses, oldest first.
// No statuses means all of them.
func (s *InMemoryStore) ListByCompany(_ context.Context, companyID id.CompanyID, statuses ...models.ClaimStatus) ([]*models.ClaimRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ClaimRequest
	for _, c := range s.claims {
		c := c
		if c.CompanyID != companyID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, c.Status) {
			continue
		}
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *models.ClaimRequest) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) FindPendingByCompany(ctx context.Context, companyID id.CompanyID) (*models.ClaimRequest, error) {
	pending, err := s.ListByCompany(ctx, companyID, models.StatusPending)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, fmt.Errorf("no pending claim: %w", sentinel.ErrNotFound)
	}
	return pending[0], nil
}

func (s *InMemoryStore) Delete(_ context.Context, claimID id.ClaimRequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[claimID]; !ok {
		return fmt.Errorf("claim request not found: %w", sentinel.ErrNotFound)
	}
	delete(s.claims, claimID)
	return nil
}

// Execute runs validate then mutate on the claim under the store lock and
// persists the result. A validate error aborts without writing.
func (s *InMemoryStore) Execute(_ context.Context, claimID id.ClaimRequestID, validate func(*models.ClaimRequest) error, mutate func(*models.ClaimRequest)) (*models.ClaimRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[claimID]
	if !ok {
		return nil, fmt.Errorf("claim request not found: %w", sentinel.ErrNotFound)
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	mutate(&c)
	s.claims[claimID] = c
	return &c, nil
}

// UpdateIfStatus applies mutate only while the stored status equals expected.
// A claim in any other status reports sentinel.ErrInvalidState.
func (s *InMemoryStore) UpdateIfStatus(_ context.Context, claimID id.ClaimRequestID, expected models.ClaimStatus, mutate func(*models.ClaimRequest) error) (*models.ClaimRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[claimID]
	if !ok {
		return nil, fmt.Errorf("claim request not found: %w", sentinel.ErrNotFound)
	}
	if c.Status != expected {
		return nil, fmt.Errorf("claim request is %s, expected %s: %w", c.Status, expected, sentinel.ErrInvalidState)
	}
	if err := mutate(&c); err != nil {
		return nil, err
	}
	s.claims[claimID] = c
	return &c, nil
}

// Restore writes claim back as given. It undoes writes of an aborted
// in-memory transaction.
func (s *InMemoryStore) Restore(_ context.Context, claim *models.ClaimRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[claim.ID] = *claim
	return nil
}
