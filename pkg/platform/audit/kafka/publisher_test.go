package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "claimdesk/pkg/domain"
	audit "claimdesk/pkg/platform/audit"
)

func TestRecordKeyPrefersClaim(t *testing.T) {
	claimID := uuid.New()
	companyID := uuid.New()

	assert.Equal(t, claimID.String(), string(recordKey(audit.Event{
		ClaimRequestID: id.ClaimRequestID(claimID),
		CompanyID:      id.CompanyID(companyID),
	})))
	assert.Equal(t, companyID.String(), string(recordKey(audit.Event{CompanyID: id.CompanyID(companyID)})))
	assert.Nil(t, recordKey(audit.Event{}))
}

func TestEncodeOmitsNilIDs(t *testing.T) {
	raw, err := encode(audit.Event{
		ID:        "evt-1",
		Action:    string(audit.EventTokenRejected),
		Category:  audit.CategorySecurity,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Bot:       true,
	})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "2026-01-02T03:04:05Z", m["timestamp"])
	assert.Equal(t, true, m["bot"])
	assert.NotContains(t, m, "claim_request_id")
	assert.NotContains(t, m, "user_id")
}

func TestNewRequiresBrokersAndTopic(t *testing.T) {
	_, err := New(Config{Topic: "audit"})
	assert.Error(t, err)
	_, err = New(Config{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
}
