package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "claimdesk/pkg/domain-errors"
)

func TestNormalize(t *testing.T) {
	t.Run("lower-cases a valid address", func(t *testing.T) {
		got, err := Normalize("business_email", "  Biz@Acme.COM ")
		require.NoError(t, err)
		assert.Equal(t, "biz@acme.com", got)
	})

	t.Run("rejects missing and malformed addresses", func(t *testing.T) {
		for _, raw := range []string{"", "   ", "not-an-email", "Bob <bob@acme.com>"} {
			_, err := Normalize("business_email", raw)
			require.Error(t, err, raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), raw)
		}
	})
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Jane Doe", DisplayName("jane.doe@acme.com"))
	assert.Equal(t, "Biz", DisplayName("biz@acme.com"))
	assert.Equal(t, "User", DisplayName("+@acme.com"))
}
