package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimdesk/internal/directory/store/company"
)

func TestSeedCompaniesIsIdempotent(t *testing.T) {
	store := company.NewInMemory()
	ctx := context.Background()

	created, err := SeedCompanies(ctx, store, time.Now())
	require.NoError(t, err)
	assert.Equal(t, len(DemoCompanies), created)

	created, err = SeedCompanies(ctx, store, time.Now())
	require.NoError(t, err)
	assert.Zero(t, created)
}
