package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"claimdesk/internal/claim/models"
	claimsvc "claimdesk/internal/claim/service"
	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/platform/httputil"
	"claimdesk/pkg/platform/middleware/auth"
	"claimdesk/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the claim orchestrator surface exposed over HTTP.
type Service interface {
	SubmitClaim(ctx context.Context, req claimsvc.SubmitClaimRequest) (*claimsvc.SubmitClaimResult, error)
	HandleSupervisorVerification(ctx context.Context, rawToken string, companyID id.CompanyID) (*claimsvc.SupervisorVerificationResult, error)
	HandleBusinessEmailVerification(ctx context.Context, userID id.UserID, claimID id.ClaimRequestID, companyID id.CompanyID) (*claimsvc.BusinessVerificationResult, error)
	GetClaimStatus(ctx context.Context, userID id.UserID, claimID id.ClaimRequestID) (*models.ClaimRequest, error)
}

// Handler serves the claim routes.
type Handler struct {
	logger       *slog.Logger
	claims       Service
	jwtValidator auth.JWTValidator
	// supervisorSuccessURL is where a redeemed supervisor link lands.
	supervisorSuccessURL string
}

func New(claims Service, logger *slog.Logger, jwtValidator auth.JWTValidator, supervisorSuccessURL string) *Handler {
	return &Handler{
		logger:               logger,
		claims:               claims,
		jwtValidator:         jwtValidator,
		supervisorSuccessURL: supervisorSuccessURL,
	}
}

// Register mounts the claim routes. The supervisor link is unauthenticated;
// the token in the query is its only credential.
func (h *Handler) Register(r chi.Router) {
	r.Get("/claims/verify-supervisor", h.handleVerifySupervisor)
	r.With(auth.OptionalAuth(h.jwtValidator, h.logger)).Post("/claims", h.handleSubmitClaim)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/claims/verify-business", h.handleVerifyBusiness)
		r.Get("/claims/{claimRequestID}", h.handleGetClaim)
	})
}

type submitClaimRequest struct {
	BusinessEmail   string `json:"business_email"`
	SupervisorEmail string `json:"supervisor_email"`
	CompanyID       string `json:"company_id"`
	CompanyName     string `json:"company_name"`
	ContactPhone    string `json:"contact_phone,omitempty"`
	DisplayName     string `json:"display_name,omitempty"`

	companyID id.CompanyID
}

func (req *submitClaimRequest) Validate() error {
	req.BusinessEmail = strings.TrimSpace(req.BusinessEmail)
	req.SupervisorEmail = strings.TrimSpace(req.SupervisorEmail)
	if req.BusinessEmail == "" || req.SupervisorEmail == "" {
		return dErrors.New(dErrors.CodeValidation, "business_email and supervisor_email are required")
	}
	companyID, err := id.ParseCompanyID(req.CompanyID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	req.companyID = companyID
	return nil
}

type submitClaimResponse struct {
	Success        bool   `json:"success"`
	TrackingNumber string `json:"tracking_number"`
	ClaimRequestID string `json:"claim_request_id"`
}

func (h *Handler) handleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[submitClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var requesterID *id.UserID
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		requesterID = &userID
	}

	result, err := h.claims.SubmitClaim(ctx, claimsvc.SubmitClaimRequest{
		BusinessEmail:   req.BusinessEmail,
		SupervisorEmail: req.SupervisorEmail,
		CompanyID:       req.companyID,
		CompanyName:     req.CompanyName,
		ContactPhone:    req.ContactPhone,
		RequesterID:     requesterID,
		DisplayName:     req.DisplayName,
	})
	if err != nil {
		h.logFailure(ctx, "claim submission failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, submitClaimResponse{
		Success:        true,
		TrackingNumber: result.TrackingNumber,
		ClaimRequestID: result.ClaimRequestID.String(),
	})
}

// handleVerifySupervisor is opened from an email client, so it answers with a
// redirect or plain text.
func (h *Handler) handleVerifySupervisor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	token := query.Get("token")
	rawCompanyID := query.Get("companyId")
	if token == "" || rawCompanyID == "" {
		httputil.WritePlainText(w, http.StatusBadRequest, "This verification link is incomplete.")
		return
	}
	companyID, err := id.ParseCompanyID(rawCompanyID)
	if err != nil {
		httputil.WritePlainText(w, http.StatusBadRequest, "This verification link is incomplete.")
		return
	}

	if _, err := h.claims.HandleSupervisorVerification(ctx, token, companyID); err != nil {
		status, body := supervisorFailure(err)
		h.logFailure(ctx, "supervisor verification failed", err)
		httputil.WritePlainText(w, status, body)
		return
	}

	if h.supervisorSuccessURL == "" {
		httputil.WritePlainText(w, http.StatusOK, "Thank you. The claim has been confirmed.")
		return
	}
	http.Redirect(w, r, h.supervisorSuccessURL, http.StatusFound)
}

func supervisorFailure(err error) (int, string) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeInvalidToken:
		return http.StatusBadRequest, "This verification link is invalid."
	case dErrors.CodeExpired:
		return http.StatusBadRequest, "This verification link has expired."
	case dErrors.CodeAlreadyUsed:
		return http.StatusBadRequest, "This verification link has already been used."
	case dErrors.CodeNotFound:
		return http.StatusNotFound, "The claim for this link no longer exists."
	case dErrors.CodeConflict:
		return http.StatusConflict, "This claim is no longer pending."
	default:
		return http.StatusInternalServerError, "Something went wrong while confirming the claim."
	}
}

type verifyBusinessRequest struct {
	UserID         string `json:"user_id"`
	ClaimRequestID string `json:"claim_request_id"`
	CompanyID      string `json:"company_id"`

	userID    id.UserID
	claimID   id.ClaimRequestID
	companyID id.CompanyID
}

func (req *verifyBusinessRequest) Validate() error {
	var err error
	if req.userID, err = id.ParseUserID(req.UserID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	if req.claimID, err = id.ParseClaimRequestID(req.ClaimRequestID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	if req.companyID, err = id.ParseCompanyID(req.CompanyID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	return nil
}

type verifyBusinessResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	BothVerified bool   `json:"both_verified"`
}

func (h *Handler) handleVerifyBusiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[verifyBusinessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if caller := requestcontext.UserID(ctx); caller != req.userID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "user_id does not match the signed-in account"))
		return
	}

	result, err := h.claims.HandleBusinessEmailVerification(ctx, req.userID, req.claimID, req.companyID)
	if err != nil {
		h.logFailure(ctx, "business verification failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyBusinessResponse{
		Success:      result.Success,
		Message:      result.Message,
		BothVerified: result.BothVerified,
	})
}

type claimStatusResponse struct {
	ClaimRequestID          string     `json:"claim_request_id"`
	CompanyID               string     `json:"company_id"`
	CompanyName             string     `json:"company_name"`
	Status                  string     `json:"status"`
	TrackingNumber          string     `json:"tracking_number"`
	BusinessEmailVerified   bool       `json:"business_email_verified"`
	SupervisorEmailVerified bool       `json:"supervisor_email_verified"`
	CreatedAt               time.Time  `json:"created_at"`
	ApprovedAt              *time.Time `json:"approved_at,omitempty"`
}

func (h *Handler) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimID, err := id.ParseClaimRequestID(chi.URLParam(r, "claimRequestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claim, err := h.claims.GetClaimStatus(ctx, requestcontext.UserID(ctx), claimID)
	if err != nil {
		h.logFailure(ctx, "claim status lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claimStatusResponse{
		ClaimRequestID:          claim.ID.String(),
		CompanyID:               claim.CompanyID.String(),
		CompanyName:             claim.CompanyName,
		Status:                  claim.Status.String(),
		TrackingNumber:          claim.TrackingNumber,
		BusinessEmailVerified:   claim.BusinessEmailVerified,
		SupervisorEmailVerified: claim.SupervisorEmailVerified,
		CreatedAt:               claim.CreatedAt,
		ApprovedAt:              claim.ApprovedAt,
	})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	logFn := h.logger.WarnContext
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		logFn = h.logger.ErrorContext
	}
	logFn(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
