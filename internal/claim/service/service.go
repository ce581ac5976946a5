// Package service is the claim orchestrator. It provisions the claimant's
// account, dispatches both verification channels and promotes the claim once
// both channels agree.
package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"claimdesk/internal/claim/lock"
	"claimdesk/internal/claim/metrics"
	"claimdesk/internal/claim/models"
	"claimdesk/internal/claim/ports"
	tokenstore "claimdesk/internal/claim/store/token"
	dirmodels "claimdesk/internal/directory/models"
	"claimdesk/pkg/attrs"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/audit"
	"claimdesk/pkg/platform/middleware/metadata"
	"claimdesk/pkg/requestcontext"
)

type ClaimStore interface {
	Create(ctx context.Context, claim *models.ClaimRequest) error
	FindByID(ctx context.Context, claimID id.ClaimRequestID) (*models.ClaimRequest, error)
	FindPendingByCompany(ctx context.Context, companyID id.CompanyID) (*models.ClaimRequest, error)
	Delete(ctx context.Context, claimID id.ClaimRequestID) error
	Execute(ctx context.Context, claimID id.ClaimRequestID, validate func(*models.ClaimRequest) error, mutate func(*models.ClaimRequest)) (*models.ClaimRequest, error)
	UpdateIfStatus(ctx context.Context, claimID id.ClaimRequestID, expected models.ClaimStatus, mutate func(*models.ClaimRequest) error) (*models.ClaimRequest, error)
}

type TokenStore interface {
	Create(ctx context.Context, token *models.VerificationToken) error
	FindByHash(ctx context.Context, tokenHash string) (*models.VerificationToken, error)
	Consume(ctx context.Context, tokenHash string, now time.Time, check tokenstore.CheckFunc) (*models.VerificationToken, error)
}

type CompanyStore interface {
	FindByID(ctx context.Context, companyID id.CompanyID) (*dirmodels.Company, error)
	MarkClaimed(ctx context.Context, companyID id.CompanyID, claimedByName string, now time.Time) error
}

type UserStore interface {
	Create(ctx context.Context, user *dirmodels.User) error
	FindByID(ctx context.Context, userID id.UserID) (*dirmodels.User, error)
	Delete(ctx context.Context, userID id.UserID) error
	PromoteToCompany(ctx context.Context, userID id.UserID, companyID id.CompanyID, now time.Time) error
}

// Locker hands out the per-company submission lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (lock.ReleaseFunc, error)
}

// Config holds the orchestrator's tunables.
type Config struct {
	SupervisorTokenTTL time.Duration
	LockTTL            time.Duration
	// SupervisorVerifyURL is the public address of GET /claims/verify-supervisor.
	SupervisorVerifyURL string
	// BusinessReturnURL is where the identity provider sends the claimant after
	// confirming their email.
	BusinessReturnURL string
}

type Service struct {
	claims    ClaimStore
	tokens    *TokenIssuer
	companies CompanyStore
	users     UserStore
	identity  ports.IdentityProvider
	mailer    ports.Mailer
	locker    Locker
	tx        PromotionTx
	cfg       Config

	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// Deps groups the collaborators the orchestrator cannot run without.
type Deps struct {
	Claims    ClaimStore
	Tokens    TokenStore
	Companies CompanyStore
	Users     UserStore
	Identity  ports.IdentityProvider
	Mailer    ports.Mailer
	Locker    Locker
	Tx        PromotionTx
}

func New(deps Deps, cfg Config, opts ...Option) *Service {
	if cfg.SupervisorTokenTTL == 0 {
		cfg.SupervisorTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = 30 * time.Second
	}
	s := &Service{
		claims:    deps.Claims,
		tokens:    NewTokenIssuer(deps.Tokens),
		companies: deps.Companies,
		users:     deps.Users,
		identity:  deps.Identity,
		mailer:    deps.Mailer,
		locker:    deps.Locker,
		tx:        deps.Tx,
		cfg:       cfg,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:    otel.Tracer("claimdesk/claim"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// logAudit logs the event and forwards it to the audit publisher. Attributes
// are key/value pairs; user_id, company_id, claim_request_id and reason are
// lifted into the audit event.
func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	agent := metadata.AgentFromContext(ctx)
	if agent.Bot {
		attributes = append(attributes, "bot", true)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	s.logger.InfoContext(ctx, string(event), args...)

	if s.auditPublisher == nil {
		return
	}
	userID := attrs.Parse(attributes, "user_id", id.ParseUserID)
	companyID := attrs.Parse(attributes, "company_id", id.ParseCompanyID)
	claimID := attrs.Parse(attributes, "claim_request_id", id.ParseClaimRequestID)
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:         string(event),
		UserID:         userID,
		CompanyID:      companyID,
		ClaimRequestID: claimID,
		Subject:        attrs.String(attributes, "subject"),
		Reason:         attrs.String(attributes, "reason"),
		RequestID:      requestcontext.RequestID(ctx),
		ClientIP:       requestcontext.ClientIP(ctx),
		UserAgent:      agent.Raw,
		Bot:            agent.Bot,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"event", string(event),
			"error", err,
		)
	}
}
