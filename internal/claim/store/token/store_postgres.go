package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"claimdesk/internal/claim/models"
	"claimdesk/internal/platform/postgres"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
	txcontext "claimdesk/pkg/platform/tx"
)

// PostgresStore persists verification tokens in verification_tokens.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const tokenColumns = `id, token_hash, email, claim_request_id, company_id, expires_at, used, used_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*models.VerificationToken, error) {
	var (
		t                       models.VerificationToken
		tid, claimID, companyID uuid.UUID
	)
	if err := row.Scan(&tid, &t.TokenHash, &t.Email, &claimID, &companyID, &t.ExpiresAt, &t.Used, &t.UsedAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.ID = id.TokenID(tid)
	t.ClaimRequestID = id.ClaimRequestID(claimID)
	t.CompanyID = id.CompanyID(companyID)
	return &t, nil
}

func (s *PostgresStore) Create(ctx context.Context, token *models.VerificationToken) error {
	query := `
		INSERT INTO verification_tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(token.ID),
		token.TokenHash,
		token.Email,
		uuid.UUID(token.ClaimRequestID),
		uuid.UUID(token.CompanyID),
		token.ExpiresAt,
		token.Used,
		token.UsedAt,
		token.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("token hash collision: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByHash(ctx context.Context, tokenHash string) (*models.VerificationToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM verification_tokens WHERE token_hash = $1`
	t, err := scanToken(txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find verification token: %w", err)
	}
	return t, nil
}

// Consume flips the token with a single conditional UPDATE. check only sees
// fields that never change after issue, so reading them first is safe. A
// zero-row update is re-read to report expiry ahead of prior use.
func (s *PostgresStore) Consume(ctx context.Context, tokenHash string, now time.Time, check CheckFunc) (*models.VerificationToken, error) {
	current, err := s.FindByHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(current); err != nil {
			return nil, err
		}
	}

	query := `
		UPDATE verification_tokens
		SET used = TRUE, used_at = $2
		WHERE token_hash = $1 AND used = FALSE AND expires_at >= $2
		RETURNING ` + tokenColumns
	consumed, err := scanToken(txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, tokenHash, now))
	if err == nil {
		return consumed, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("consume verification token: %w", err)
	}

	current, err = s.FindByHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if current.IsExpired(now) {
		return nil, fmt.Errorf("token expired at %s: %w", current.ExpiresAt.Format(time.RFC3339), sentinel.ErrExpired)
	}
	return nil, fmt.Errorf("token consumed: %w", sentinel.ErrAlreadyUsed)
}
