// Package directory holds the business listings and the users that represent
// them.
package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"claimdesk/internal/directory/models"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
)

// CompanyCreator is the store surface seeding needs.
type CompanyCreator interface {
	Create(ctx context.Context, company *models.Company) error
}

// DemoCompanies are stable IDs so local links keep working across restarts.
var DemoCompanies = []struct {
	ID   string
	Name string
}{
	{ID: "7d2a5c1e-3f4b-4c8d-9e6a-1b2c3d4e5f60", Name: "Harbor Street Bakery"},
	{ID: "1f9e8d7c-6b5a-4d3c-8b2a-0e1f2a3b4c5d", Name: "Northwind Cycles"},
	{ID: "a4b3c2d1-e5f6-4a7b-8c9d-0e1f2a3b4c5e", Name: "Juniper Dental Clinic"},
}

// SeedCompanies inserts the demo listings. Listings that already exist are
// skipped so seeding is safe on every start.
func SeedCompanies(ctx context.Context, store CompanyCreator, now time.Time) (int, error) {
	created := 0
	for _, demo := range DemoCompanies {
		c, err := models.NewCompany(id.CompanyID(uuid.MustParse(demo.ID)), demo.Name, now)
		if err != nil {
			return created, err
		}
		if err := store.Create(ctx, c); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				continue
			}
			return created, fmt.Errorf("seed company %q: %w", demo.Name, err)
		}
		created++
	}
	return created, nil
}
