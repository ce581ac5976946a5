package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"claimdesk/internal/identity/models"
	"claimdesk/internal/platform/postgres"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
	txcontext "claimdesk/pkg/platform/tx"
)

// PostgresAccountStore persists accounts in identity_accounts.
type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

const accountColumns = `id, email, passphrase_hash, display_name, email_verified, email_verified_at, created_at`

func (s *PostgresAccountStore) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO identity_accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(account.ID),
		strings.ToLower(account.Email),
		account.PassphraseHash,
		account.DisplayName,
		account.EmailVerified,
		account.EmailVerifiedAt,
		account.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("account email taken: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) findOne(ctx context.Context, where string, arg any) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM identity_accounts WHERE ` + where
	var (
		a   models.Account
		aid uuid.UUID
	)
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, arg).Scan(
		&aid, &a.Email, &a.PassphraseHash, &a.DisplayName, &a.EmailVerified, &a.EmailVerifiedAt, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	a.ID = id.UserID(aid)
	return &a, nil
}

func (s *PostgresAccountStore) FindByID(ctx context.Context, accountID id.UserID) (*models.Account, error) {
	return s.findOne(ctx, "id = $1", uuid.UUID(accountID))
}

func (s *PostgresAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, "email = $1", strings.ToLower(strings.TrimSpace(email)))
}

func (s *PostgresAccountStore) Delete(ctx context.Context, accountID id.UserID) error {
	result, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx,
		`DELETE FROM identity_accounts WHERE id = $1`, uuid.UUID(accountID))
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// MarkEmailVerified keeps the first verification time on repeat calls.
func (s *PostgresAccountStore) MarkEmailVerified(ctx context.Context, accountID id.UserID, now time.Time) error {
	query := `
		UPDATE identity_accounts
		SET email_verified = TRUE,
		    email_verified_at = COALESCE(email_verified_at, $2)
		WHERE id = $1
	`
	result, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query, uuid.UUID(accountID), now)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark email verified rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
	}
	return nil
}
