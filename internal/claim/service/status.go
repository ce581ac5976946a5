package service

import (
	"context"
	"errors"

	"claimdesk/internal/claim/models"
	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/platform/sentinel"
)

// GetClaimStatus returns the claim to the account it was provisioned for, or
// to the signed-in requester who submitted it.
func (s *Service) GetClaimStatus(ctx context.Context, userID id.UserID, claimID id.ClaimRequestID) (*models.ClaimRequest, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if claimID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "claim_request_id is required")
	}
	claim, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	if claim.UserID != userID && (claim.RequesterID == nil || *claim.RequesterID != userID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "claim belongs to another account")
	}
	return claim, nil
}
