// Package domain holds typed identifiers shared across bounded contexts.
//
// Each identifier wraps a UUID so the compiler refuses to pass a CompanyID where
// a ClaimRequestID is expected. Parse functions are the trust boundary: they
// reject empty, malformed and nil UUIDs with CodeInvalidInput.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "claimdesk/pkg/domain-errors"
)

type (
	UserID         uuid.UUID
	CompanyID      uuid.UUID
	ClaimRequestID uuid.UUID
	TokenID        uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id CompanyID) String() string      { return uuid.UUID(id).String() }
func (id ClaimRequestID) String() string { return uuid.UUID(id).String() }
func (id TokenID) String() string        { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id CompanyID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ClaimRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TokenID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func ParseCompanyID(s string) (CompanyID, error) {
	u, err := parseUUID(s, "company_id")
	return CompanyID(u), err
}

func ParseClaimRequestID(s string) (ClaimRequestID, error) {
	u, err := parseUUID(s, "claim_request_id")
	return ClaimRequestID(u), err
}

func ParseTokenID(s string) (TokenID, error) {
	u, err := parseUUID(s, "token_id")
	return TokenID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}
