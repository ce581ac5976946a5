package service

import (
	"context"
	"errors"
	"fmt"

	"claimdesk/internal/claim/models"
	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/platform/audit"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/requestcontext"
)

// converge re-reads the claim after a flag flip and, when both channels have
// verified, promotes it. The status compare-and-set decides the single
// winner; only the winner touches the company and the user. Losers get the
// current claim back with promoted=false.
func (s *Service) converge(ctx context.Context, claimID id.ClaimRequestID) (*models.ClaimRequest, bool, error) {
	claim, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, false, dErrors.Wrap(err, dErrors.CodeNotFound, "claim not found")
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	if !claim.ReadyForPromotion() {
		return claim, false, nil
	}

	var promoted *models.ClaimRequest
	err = s.tx.RunInTx(ctx, func(ctx context.Context, stores PromotionStores) error {
		now := requestcontext.Now(ctx)
		updated, err := stores.Claims.UpdateIfStatus(ctx, claimID, models.StatusPending, func(c *models.ClaimRequest) error {
			return c.Approve(now)
		})
		if err != nil {
			return err
		}
		claimedBy := updated.RequesterName
		if claimedBy == "" {
			claimedBy = updated.BusinessEmail
		}
		if err := stores.Companies.MarkClaimed(ctx, updated.CompanyID, claimedBy, now); err != nil {
			return fmt.Errorf("mark company claimed: %w", err)
		}
		if err := stores.Users.PromoteToCompany(ctx, updated.UserID, updated.CompanyID, now); err != nil {
			return fmt.Errorf("promote user: %w", err)
		}
		promoted = updated
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			current, ferr := s.claims.FindByID(ctx, claimID)
			if ferr != nil {
				return nil, false, dErrors.Wrap(ferr, dErrors.CodeInternal, "failed to reload claim")
			}
			return current, false, nil
		}
		s.logger.ErrorContext(ctx, "claim promotion failed",
			"claim_request_id", claimID.String(),
			"error", err,
		)
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to promote claim")
	}

	s.metrics.IncrementPromotion()
	s.logAudit(ctx, audit.EventClaimApproved,
		"user_id", promoted.UserID.String(),
		"company_id", promoted.CompanyID.String(),
		"claim_request_id", promoted.ID.String(),
	)
	return promoted, true, nil
}
