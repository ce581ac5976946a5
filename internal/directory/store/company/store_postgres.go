package company

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"claimdesk/internal/directory/models"
	"claimdesk/internal/platform/postgres"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
	txcontext "claimdesk/pkg/platform/tx"
)

// PostgresStore persists companies. Writes join a transaction carried by ctx.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, company *models.Company) error {
	query := `
		INSERT INTO companies (id, name, claimed, claimed_by_name, claimed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(company.ID),
		company.Name,
		company.Claimed,
		company.ClaimedByName,
		company.ClaimedAt,
		company.CreatedAt,
		company.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("company %s: %w", company.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	query := `
		SELECT id, name, claimed, claimed_by_name, claimed_at, created_at, updated_at
		FROM companies
		WHERE id = $1
	`
	var (
		c   models.Company
		cid uuid.UUID
	)
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(companyID)).Scan(
		&cid, &c.Name, &c.Claimed, &c.ClaimedByName, &c.ClaimedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("company not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find company: %w", err)
	}
	c.ID = id.CompanyID(cid)
	return &c, nil
}

// MarkClaimed is a conditional update on claimed = FALSE. Zero affected rows
// are disambiguated into ErrNotFound and ErrConflict.
func (s *PostgresStore) MarkClaimed(ctx context.Context, companyID id.CompanyID, claimedByName string, now time.Time) error {
	query := `
		UPDATE companies
		SET claimed = TRUE, claimed_by_name = $2, claimed_at = $3, updated_at = $3
		WHERE id = $1 AND claimed = FALSE
	`
	result, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query, uuid.UUID(companyID), claimedByName, now)
	if err != nil {
		return fmt.Errorf("mark company claimed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark company claimed rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	if _, err := s.FindByID(ctx, companyID); err != nil {
		return err
	}
	return fmt.Errorf("company is already claimed: %w", sentinel.ErrConflict)
}
