package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"claimdesk/internal/identity/models"
	jwttoken "claimdesk/internal/jwt_token"
	"claimdesk/pkg/attrs"
	id "claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/email"
	"claimdesk/pkg/platform/audit"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/requestcontext"
)

type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, accountID id.UserID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Delete(ctx context.Context, accountID id.UserID) error
	MarkEmailVerified(ctx context.Context, accountID id.UserID, now time.Time) error
}

type TokenService interface {
	GenerateAccessToken(userID id.UserID, email string, expiresIn time.Duration) (string, error)
	GenerateEmailVerificationToken(userID id.UserID, email, continueURL string, expiresIn time.Duration) (string, error)
	ValidateEmailVerificationToken(tokenString string) (*jwttoken.Claims, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config holds the identity provider's tunables.
type Config struct {
	BaseURL             string
	VerificationLinkTTL time.Duration
	AccessTokenTTL      time.Duration
	BcryptCost          int
}

// AccessToken is the result of a successful Authenticate.
type AccessToken struct {
	Token     string
	TokenType string
	ExpiresIn time.Duration
	UserID    id.UserID
}

// Service is the local identity provider: accounts, email verification links
// and passphrase authentication.
type Service struct {
	accounts       AccountStore
	tokens         TokenService
	cfg            Config
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(accounts AccountStore, tokens TokenService, cfg Config, opts ...Option) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.VerificationLinkTTL == 0 {
		cfg.VerificationLinkTTL = 24 * time.Hour
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = time.Hour
	}
	s := &Service{accounts: accounts, tokens: tokens, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAccount registers an unverified account. An existing account for the
// email fails with CodeAlreadyExists wrapping sentinel.ErrConflict.
func (s *Service) CreateAccount(ctx context.Context, rawEmail, passphrase, displayName string) (id.UserID, error) {
	addr, err := email.Normalize("email", rawEmail)
	if err != nil {
		return id.UserID{}, err
	}
	if len(passphrase) < 8 {
		return id.UserID{}, dErrors.New(dErrors.CodeValidation, "passphrase must be at least 8 characters")
	}
	if displayName == "" {
		displayName = email.DisplayName(addr)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), s.cfg.BcryptCost)
	if err != nil {
		return id.UserID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash passphrase")
	}
	account, err := models.NewAccount(id.UserID(uuid.New()), addr, hash, displayName, requestcontext.Now(ctx))
	if err != nil {
		return id.UserID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build account")
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return id.UserID{}, dErrors.Wrap(err, dErrors.CodeAlreadyExists, "an account already exists for this email")
		}
		return id.UserID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	s.logAudit(ctx, audit.EventAccountCreated, "user_id", account.ID.String())
	return account.ID, nil
}

// DeleteAccount removes an account. Deleting a missing account fails NotFound.
func (s *Service) DeleteAccount(ctx context.Context, accountID id.UserID) error {
	if err := s.accounts.Delete(ctx, accountID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "account not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete account")
	}
	s.logAudit(ctx, audit.EventAccountDeleted, "user_id", accountID.String())
	return nil
}

// IssueEmailVerificationLink returns a signed link that confirms the address
// and then redirects to returnURL.
func (s *Service) IssueEmailVerificationLink(ctx context.Context, rawEmail, returnURL string) (string, error) {
	addr, err := email.Normalize("email", rawEmail)
	if err != nil {
		return "", err
	}
	account, err := s.accounts.FindByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.Wrap(err, dErrors.CodeNotFound, "account not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	token, err := s.tokens.GenerateEmailVerificationToken(account.ID, account.Email, returnURL, s.cfg.VerificationLinkTTL)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign verification link")
	}

	link, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "invalid identity base url")
	}
	link = link.JoinPath("identity", "verify-email")
	q := link.Query()
	q.Set("token", token)
	if returnURL != "" {
		q.Set("continue", returnURL)
	}
	link.RawQuery = q.Encode()
	return link.String(), nil
}

// IsEmailVerified reports whether the account confirmed its email address.
func (s *Service) IsEmailVerified(ctx context.Context, accountID id.UserID) (bool, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.Wrap(err, dErrors.CodeNotFound, "account not found")
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return account.EmailVerified, nil
}

// ConfirmEmail redeems a verification link token and returns the continue URL
// carried by it. Replaying a valid link is harmless.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", dErrors.New(dErrors.CodeValidation, "token is required")
	}
	claims, err := s.tokens.ValidateEmailVerificationToken(token)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidToken, "verification link is invalid or expired")
	}
	accountID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidToken, "verification link is invalid or expired")
	}
	if err := s.accounts.MarkEmailVerified(ctx, accountID, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.Wrap(err, dErrors.CodeNotFound, "account not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm email")
	}
	s.logAudit(ctx, audit.EventEmailConfirmed, "user_id", accountID.String())
	return claims.Continue, nil
}

// Authenticate exchanges email and passphrase for an access token. Unknown
// emails and wrong passphrases fail identically.
func (s *Service) Authenticate(ctx context.Context, rawEmail, passphrase string) (*AccessToken, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid email or passphrase")
	addr, err := email.Normalize("email", rawEmail)
	if err != nil {
		return nil, invalid
	}
	account, err := s.accounts.FindByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logAudit(ctx, audit.EventAuthFailed, "reason", "unknown_email")
			return nil, invalid
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if err := bcrypt.CompareHashAndPassword(account.PassphraseHash, []byte(passphrase)); err != nil {
		s.logAudit(ctx, audit.EventAuthFailed, "user_id", account.ID.String(), "reason", "bad_passphrase")
		return nil, invalid
	}
	token, err := s.tokens.GenerateAccessToken(account.ID, account.Email, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}
	s.logAudit(ctx, audit.EventAccessTokenIssued, "user_id", account.ID.String())
	return &AccessToken{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: s.cfg.AccessTokenTTL,
		UserID:    account.ID,
	}, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	userID := attrs.Parse(attributes, "user_id", id.ParseUserID)
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:    string(event),
		UserID:    userID,
		Subject:   attrs.String(attributes, "user_id"),
		Reason:    attrs.String(attributes, "reason"),
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	}); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event", "event", string(event), "error", err)
	}
}
