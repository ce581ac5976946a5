package service

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedCodes(t *testing.T) {
	sixDigits := regexp.MustCompile(`^[1-9][0-9]{5}$`)
	nineDigits := regexp.MustCompile(`^[1-9][0-9]{8}$`)

	for i := 0; i < 200; i++ {
		tracking, err := NewTrackingNumber()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, tracking)

		passphrase, err := NewPassphrase()
		require.NoError(t, err)
		assert.Regexp(t, nineDigits, passphrase)
	}
}

func TestRawTokens(t *testing.T) {
	a, err := newRawToken()
	require.NoError(t, err)
	b, err := newRawToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
	assert.Equal(t, HashToken(a), HashToken(a))
	assert.NotEqual(t, HashToken(a), HashToken(b))
	assert.Len(t, HashToken(a), 64)
}
