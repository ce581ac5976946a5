package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"claimdesk/internal/claim/lock"
	"claimdesk/internal/claim/models"
	dirmodels "claimdesk/internal/directory/models"
	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/email"
	"claimdesk/pkg/platform/audit"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/requestcontext"
)

const (
	maxCompanyNameLength  = 200
	maxDisplayNameLength  = 100
	maxContactPhoneLength = 32
)

// SubmitClaimRequest is the claimant's input. RequesterID is set when the
// claimant was signed in.
type SubmitClaimRequest struct {
	BusinessEmail   string
	SupervisorEmail string
	CompanyID       id.CompanyID
	CompanyName     string
	ContactPhone    string
	RequesterID     *id.UserID
	DisplayName     string
}

// normalize trims and lower-cases the input in place and reports the first
// validation failure.
func (r *SubmitClaimRequest) normalize() error {
	var err error
	if r.BusinessEmail, err = email.Normalize("business_email", r.BusinessEmail); err != nil {
		return err
	}
	if r.SupervisorEmail, err = email.Normalize("supervisor_email", r.SupervisorEmail); err != nil {
		return err
	}
	if r.BusinessEmail == r.SupervisorEmail {
		return dErrors.New(dErrors.CodeValidation, "business and supervisor email must be different")
	}
	if r.CompanyID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "company_id is required")
	}
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	if r.CompanyName == "" {
		return dErrors.New(dErrors.CodeValidation, "company_name is required")
	}
	if len(r.CompanyName) > maxCompanyNameLength {
		return dErrors.New(dErrors.CodeValidation, "company_name is too long")
	}
	r.ContactPhone = strings.TrimSpace(r.ContactPhone)
	if len(r.ContactPhone) > maxContactPhoneLength {
		return dErrors.New(dErrors.CodeValidation, "contact_phone is too long")
	}
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if len(r.DisplayName) > maxDisplayNameLength {
		return dErrors.New(dErrors.CodeValidation, "display_name is too long")
	}
	if r.DisplayName == "" {
		r.DisplayName = email.DisplayName(r.BusinessEmail)
	}
	if r.RequesterID != nil && r.RequesterID.IsNil() {
		r.RequesterID = nil
	}
	return nil
}

// SubmitClaimResult identifies the accepted claim.
type SubmitClaimResult struct {
	ClaimRequestID id.ClaimRequestID
	TrackingNumber string
	UserID         id.UserID
}

// SubmitClaim provisions an account for the business email, records a pending
// claim and sends both verification emails. Any failure after the account
// exists removes exactly what this call created before CodeInternal is
// returned.
func (s *Service) SubmitClaim(ctx context.Context, req SubmitClaimRequest) (*SubmitClaimResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "claim.SubmitClaim",
		trace.WithAttributes(attribute.String("company_id", req.CompanyID.String())),
	)
	defer span.End()

	result, err := s.submitClaim(ctx, &req)
	s.metrics.ObserveOperation("submit_claim", time.Since(start))
	if err != nil {
		s.metrics.IncrementSubmission(string(dErrors.CodeOf(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return nil, err
	}
	s.metrics.IncrementSubmission("accepted")
	span.SetAttributes(attribute.String("claim_request_id", result.ClaimRequestID.String()))
	return result, nil
}

func (s *Service) submitClaim(ctx context.Context, req *SubmitClaimRequest) (*SubmitClaimResult, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, lock.Key(req.CompanyID.String()), s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeAlreadyExists, "a claim for this company is already being submitted")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire submission lock")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "failed to release submission lock",
				"company_id", req.CompanyID.String(),
				"error", err,
			)
		}
	}()

	company, err := s.companies.FindByID(ctx, req.CompanyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "company not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load company")
	}
	if company.Claimed {
		return nil, dErrors.New(dErrors.CodeAlreadyClaimed, "company is already claimed")
	}
	if _, err := s.claims.FindPendingByCompany(ctx, company.ID); err == nil {
		return nil, dErrors.New(dErrors.CodeAlreadyExists, "a claim for this company is already pending")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pending claims")
	}

	trackingNumber, err := NewTrackingNumber()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate tracking number")
	}
	passphrase, err := NewPassphrase()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate passphrase")
	}

	now := requestcontext.Now(ctx)
	claimID := id.ClaimRequestID(uuid.New())

	userID, err := s.identity.CreateAccount(ctx, req.BusinessEmail, passphrase, req.DisplayName)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeAlreadyExists, "an account already exists for this email")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to provision account")
	}

	scope := &provisioningScope{}
	scope.track("account", func(ctx context.Context) error {
		return s.identity.DeleteAccount(ctx, userID)
	})
	fail := func(step string, cause error) (*SubmitClaimResult, error) {
		return nil, s.compensate(ctx, scope, step, cause,
			"user_id", userID.String(),
			"company_id", req.CompanyID.String(),
			"claim_request_id", claimID.String(),
		)
	}

	user, err := dirmodels.NewUser(userID, req.BusinessEmail, req.DisplayName, now)
	if err != nil {
		return fail("build_user", err)
	}
	if err := s.users.Create(ctx, user); err != nil {
		return fail("create_user", err)
	}
	scope.track("user", func(ctx context.Context) error {
		return s.users.Delete(ctx, userID)
	})

	claim, err := models.NewClaimRequest(claimID, req.CompanyID, req.CompanyName, userID,
		req.BusinessEmail, req.SupervisorEmail, trackingNumber, now)
	if err != nil {
		return fail("build_claim", err)
	}
	claim.RequesterID = req.RequesterID
	claim.RequesterName = req.DisplayName
	claim.ContactPhone = req.ContactPhone
	if err := s.claims.Create(ctx, claim); err != nil {
		return fail("create_claim", err)
	}
	scope.track("claim", func(ctx context.Context) error {
		return s.claims.Delete(ctx, claimID)
	})

	returnURL, err := withQuery(s.cfg.BusinessReturnURL, "claimRequestId", claimID.String(), "companyId", req.CompanyID.String())
	if err != nil {
		return fail("business_return_url", err)
	}
	businessLink, err := s.identity.IssueEmailVerificationLink(ctx, req.BusinessEmail, returnURL)
	if err != nil {
		return fail("issue_business_link", err)
	}

	// Tokens are append-only and stay behind if a later step fails.
	rawToken, token, err := s.tokens.IssueToken(ctx, req.SupervisorEmail, claimID, req.CompanyID, s.cfg.SupervisorTokenTTL, now)
	if err != nil {
		return fail("issue_supervisor_token", err)
	}
	supervisorLink, err := withQuery(s.cfg.SupervisorVerifyURL, "token", rawToken, "companyId", req.CompanyID.String())
	if err != nil {
		return fail("supervisor_link", err)
	}

	data := messageData{
		CompanyName:     req.CompanyName,
		TrackingNumber:  trackingNumber,
		BusinessEmail:   req.BusinessEmail,
		SupervisorEmail: req.SupervisorEmail,
		Passphrase:      passphrase,
		Expires:         token.ExpiresAt.UTC().Format("2 January 2006 15:04 MST"),
	}
	if err := s.dispatch(ctx, data, businessLink, supervisorLink); err != nil {
		return fail("dispatch_email", err)
	}

	scope.commit()
	s.logAudit(ctx, audit.EventClaimSubmitted,
		"user_id", userID.String(),
		"company_id", req.CompanyID.String(),
		"claim_request_id", claimID.String(),
		"subject", req.BusinessEmail,
	)
	return &SubmitClaimResult{
		ClaimRequestID: claimID,
		TrackingNumber: trackingNumber,
		UserID:         userID,
	}, nil
}

// dispatch sends the business and supervisor emails concurrently and waits
// for both. Either failure fails the submission.
func (s *Service) dispatch(ctx context.Context, data messageData, businessLink, supervisorLink string) error {
	bizData := data
	bizData.Link = businessLink
	biz, err := businessEmail(bizData)
	if err != nil {
		return err
	}
	supData := data
	supData.Link = supervisorLink
	sup, err := supervisorEmail(supData)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.mailer.Send(gctx, biz); err != nil {
			return fmt.Errorf("send business email: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.mailer.Send(gctx, sup); err != nil {
			return fmt.Errorf("send supervisor email: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// compensate rolls the scope back and translates the failure. Rollback runs
// on a context that outlives a cancelled request.
func (s *Service) compensate(ctx context.Context, scope *provisioningScope, step string, cause error, attributes ...any) error {
	released, rollbackErr := scope.rollback(context.WithoutCancel(ctx))
	s.metrics.IncrementCompensation()
	if rollbackErr != nil {
		s.logger.ErrorContext(ctx, "claim compensation incomplete",
			append(attributes, "step", step, "error", rollbackErr)...,
		)
	}
	s.logger.WarnContext(ctx, "claim submission rolled back",
		append(attributes, "step", step, "released", released, "error", cause)...,
	)
	s.logAudit(ctx, audit.EventClaimCompensated, append(attributes, "reason", step)...)

	if errors.Is(cause, sentinel.ErrConflict) {
		switch step {
		case "create_claim":
			return dErrors.Wrap(cause, dErrors.CodeAlreadyExists, "a claim for this company is already pending")
		case "create_user":
			return dErrors.Wrap(cause, dErrors.CodeAlreadyExists, "a user already exists for this email")
		}
	}
	return dErrors.Wrap(cause, dErrors.CodeInternal, "failed to submit claim")
}

func withQuery(base string, kv ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", base, err)
	}
	q := u.Query()
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
