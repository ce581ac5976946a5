package attrs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "claimdesk/pkg/domain"
)

func TestString(t *testing.T) {
	kv := []any{"reason", "expired", 42, "ignored", "count", 3, "dangling"}

	assert.Equal(t, "expired", String(kv, "reason"))
	assert.Empty(t, String(kv, "count"), "non-string values read as empty")
	assert.Empty(t, String(kv, "dangling"), "a key without a value reads as empty")
	assert.Empty(t, String(nil, "reason"))
}

func TestParse(t *testing.T) {
	claimID := id.ClaimRequestID(uuid.New())
	kv := []any{"claim_request_id", claimID.String(), "user_id", "not-a-uuid"}

	assert.Equal(t, claimID, Parse(kv, "claim_request_id", id.ParseClaimRequestID))
	assert.True(t, Parse(kv, "user_id", id.ParseUserID).IsNil())
	assert.True(t, Parse(kv, "company_id", id.ParseCompanyID).IsNil())
}
