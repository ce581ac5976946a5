package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"claimdesk/internal/claim/models"
	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/platform/audit"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/requestcontext"
)

// SupervisorVerificationResult reports the claim state after a supervisor
// link was redeemed.
type SupervisorVerificationResult struct {
	ClaimRequestID id.ClaimRequestID
	BothVerified   bool
	Approved       bool
}

// BusinessVerificationResult is the answer to a business channel poll. An
// unverified email is reported with Success=false and no error.
type BusinessVerificationResult struct {
	Success      bool
	Message      string
	BothVerified bool
}

// HandleSupervisorVerification redeems a supervisor token for companyID. The
// token is the only credential; it is consumed at most once and never after
// it expires.
func (s *Service) HandleSupervisorVerification(ctx context.Context, rawToken string, companyID id.CompanyID) (*SupervisorVerificationResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "claim.HandleSupervisorVerification",
		trace.WithAttributes(attribute.String("company_id", companyID.String())),
	)
	defer span.End()

	result, err := s.handleSupervisorVerification(ctx, rawToken, companyID)
	s.metrics.ObserveOperation("supervisor_verification", time.Since(start))
	if err != nil {
		s.metrics.IncrementVerification("supervisor", string(dErrors.CodeOf(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return nil, err
	}
	s.metrics.IncrementVerification("supervisor", "verified")
	return result, nil
}

func (s *Service) handleSupervisorVerification(ctx context.Context, rawToken string, companyID id.CompanyID) (*SupervisorVerificationResult, error) {
	if rawToken == "" || companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "token and companyId are required")
	}

	now := requestcontext.Now(ctx)
	var (
		token       *models.VerificationToken
		claim       *models.ClaimRequest
		tokenFailed bool
	)
	// The token is only spent together with the flag flip; a missing or
	// rejected claim leaves it redeemable.
	err := s.tx.RunInTx(ctx, func(ctx context.Context, stores PromotionStores) error {
		var err error
		token, err = consumeToken(ctx, stores.Tokens, rawToken, now, boundToCompany(companyID))
		if err != nil {
			tokenFailed = true
			return err
		}
		claim, err = stores.Claims.Execute(ctx, token.ClaimRequestID,
			func(c *models.ClaimRequest) error {
				if c.Status == models.StatusRejected {
					return dErrors.New(dErrors.CodeConflict, "claim is no longer pending")
				}
				return nil
			},
			func(c *models.ClaimRequest) {
				if c.Status == models.StatusPending {
					_ = c.MarkSupervisorVerified(now)
				}
			},
		)
		return err
	})
	if err != nil {
		switch {
		case tokenFailed:
			return nil, s.tokenRejected(ctx, companyID, err)
		case dErrors.HasCode(err, dErrors.CodeConflict), dErrors.HasCode(err, dErrors.CodeTimeout):
			return nil, err
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record supervisor verification")
	}

	s.logAudit(ctx, audit.EventSupervisorVerified,
		"user_id", claim.UserID.String(),
		"company_id", claim.CompanyID.String(),
		"claim_request_id", claim.ID.String(),
		"subject", token.Email,
	)

	current, _, err := s.converge(ctx, claim.ID)
	if err != nil {
		return nil, err
	}
	return &SupervisorVerificationResult{
		ClaimRequestID: current.ID,
		BothVerified:   current.BothVerified(),
		Approved:       current.Status == models.StatusApproved,
	}, nil
}

// tokenRejected maps a failed redemption to its domain error and records it.
func (s *Service) tokenRejected(ctx context.Context, companyID id.CompanyID, err error) error {
	var (
		reason string
		out    error
	)
	switch {
	case errors.Is(err, ErrTokenCompanyMismatch):
		reason = "company_mismatch"
		out = dErrors.Wrap(err, dErrors.CodeInvalidToken, "verification link is invalid")
	case errors.Is(err, sentinel.ErrNotFound):
		reason = "unknown"
		out = dErrors.Wrap(err, dErrors.CodeInvalidToken, "verification link is invalid")
	case errors.Is(err, sentinel.ErrExpired):
		reason = "expired"
		out = dErrors.Wrap(err, dErrors.CodeExpired, "verification link has expired")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		reason = "already_used"
		out = dErrors.Wrap(err, dErrors.CodeAlreadyUsed, "verification link was already used")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to redeem verification link")
	}
	s.logAudit(ctx, audit.EventTokenRejected,
		"company_id", companyID.String(),
		"reason", reason,
	)
	return out
}

// HandleBusinessEmailVerification polls the identity provider for the
// claimant's email verification and records it on the claim.
func (s *Service) HandleBusinessEmailVerification(ctx context.Context, userID id.UserID, claimID id.ClaimRequestID, companyID id.CompanyID) (*BusinessVerificationResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "claim.HandleBusinessEmailVerification",
		trace.WithAttributes(
			attribute.String("claim_request_id", claimID.String()),
			attribute.String("company_id", companyID.String()),
		),
	)
	defer span.End()

	result, err := s.handleBusinessEmailVerification(ctx, userID, claimID, companyID)
	s.metrics.ObserveOperation("business_verification", time.Since(start))
	if err != nil {
		s.metrics.IncrementVerification("business", string(dErrors.CodeOf(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return nil, err
	}
	outcome := "pending"
	if result.Success {
		outcome = "verified"
	}
	s.metrics.IncrementVerification("business", outcome)
	return result, nil
}

func (s *Service) handleBusinessEmailVerification(ctx context.Context, userID id.UserID, claimID id.ClaimRequestID, companyID id.CompanyID) (*BusinessVerificationResult, error) {
	if userID.IsNil() || claimID.IsNil() || companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user_id, claim_request_id and company_id are required")
	}

	claim, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	if claim.CompanyID != companyID {
		return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
	}
	if claim.UserID != userID {
		return nil, dErrors.New(dErrors.CodeForbidden, "claim belongs to another account")
	}
	switch claim.Status {
	case models.StatusApproved:
		return &BusinessVerificationResult{Success: true, Message: "claim approved", BothVerified: true}, nil
	case models.StatusRejected:
		return nil, dErrors.New(dErrors.CodeConflict, "claim is no longer pending")
	}

	verified, err := s.identity.IsEmailVerified(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email verification")
	}
	if !verified {
		return &BusinessVerificationResult{
			Success:      false,
			Message:      "business email not yet verified",
			BothVerified: false,
		}, nil
	}

	now := requestcontext.Now(ctx)
	var newlyVerified bool
	claim, err = s.claims.Execute(ctx, claimID,
		func(c *models.ClaimRequest) error {
			if c.Status == models.StatusRejected {
				return dErrors.New(dErrors.CodeConflict, "claim is no longer pending")
			}
			return nil
		},
		func(c *models.ClaimRequest) {
			if c.Status == models.StatusPending && !c.BusinessEmailVerified {
				_ = c.MarkBusinessVerified(now)
				newlyVerified = true
			}
		},
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, err
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record business verification")
	}
	if newlyVerified {
		s.logAudit(ctx, audit.EventBusinessVerified,
			"user_id", userID.String(),
			"company_id", claim.CompanyID.String(),
			"claim_request_id", claim.ID.String(),
		)
	}

	current, _, err := s.converge(ctx, claimID)
	if err != nil {
		return nil, err
	}
	message := "business email verified, waiting for supervisor"
	if current.Status == models.StatusApproved {
		message = "claim approved"
	}
	return &BusinessVerificationResult{
		Success:      true,
		Message:      message,
		BothVerified: current.BothVerified(),
	}, nil
}
