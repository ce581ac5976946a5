package claimrequest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"claimdesk/internal/claim/models"
	"claimdesk/internal/platform/postgres"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
	txcontext "claimdesk/pkg/platform/tx"
)

const onePendingPerCompany = "claim_requests_one_pending_per_company"

// PostgresStore persists claim requests. The partial unique index
// claim_requests_one_pending_per_company backs the one-pending rule.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const claimColumns = `id, company_id, company_name, requester_id, requester_name, business_email,
	supervisor_email, contact_phone, status, tracking_number, business_email_verified,
	supervisor_email_verified, user_id, created_at, updated_at, approved_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*models.ClaimRequest, error) {
	var (
		c                      models.ClaimRequest
		cid, companyID, userID uuid.UUID
		requesterID            uuid.NullUUID
		status                 string
	)
	err := row.Scan(
		&cid, &companyID, &c.CompanyName, &requesterID, &c.RequesterName, &c.BusinessEmail,
		&c.SupervisorEmail, &c.ContactPhone, &status, &c.TrackingNumber, &c.BusinessEmailVerified,
		&c.SupervisorEmailVerified, &userID, &c.CreatedAt, &c.UpdatedAt, &c.ApprovedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id.ClaimRequestID(cid)
	c.CompanyID = id.CompanyID(companyID)
	c.UserID = id.UserID(userID)
	c.Status = models.ClaimStatus(status)
	if requesterID.Valid {
		rid := id.UserID(requesterID.UUID)
		c.RequesterID = &rid
	}
	return &c, nil
}

func nullableUserID(userID *id.UserID) uuid.NullUUID {
	if userID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*userID), Valid: true}
}

func (s *PostgresStore) Create(ctx context.Context, claim *models.ClaimRequest) error {
	query := `
		INSERT INTO claim_requests (` + claimColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(claim.ID),
		uuid.UUID(claim.CompanyID),
		claim.CompanyName,
		nullableUserID(claim.RequesterID),
		claim.RequesterName,
		claim.BusinessEmail,
		claim.SupervisorEmail,
		claim.ContactPhone,
		string(claim.Status),
		claim.TrackingNumber,
		claim.BusinessEmailVerified,
		claim.SupervisorEmailVerified,
		uuid.UUID(claim.UserID),
		claim.CreatedAt,
		claim.UpdatedAt,
		claim.ApprovedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, onePendingPerCompany) {
			return fmt.Errorf("company %s already has a pending claim: %w", claim.CompanyID, sentinel.ErrConflict)
		}
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("claim request %s: %w", claim.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert claim request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, claimID id.ClaimRequestID) (*models.ClaimRequest, error) {
	return s.findByID(ctx, claimID, false)
}

func (s *PostgresStore) findByID(ctx context.Context, claimID id.ClaimRequestID, forUpdate bool) (*models.ClaimRequest, error) {
	query := `SELECT ` + claimColumns + ` FROM claim_requests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	c, err := scanClaim(txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(claimID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("claim request not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find claim request: %w", err)
	}
	return c, nil
}

// ListByCompany returns the company's claims in any of statuses, oldest first.
func (s *PostgresStore) ListByCompany(ctx context.Context, companyID id.CompanyID, statuses ...models.ClaimStatus) ([]*models.ClaimRequest, error) {
	query := `SELECT ` + claimColumns + ` FROM claim_requests WHERE company_id = $1`
	args := []any{uuid.UUID(companyID)}
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, st := range statuses {
			names[i] = string(st)
		}
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY created_at`

	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list claim requests: %w", err)
	}
	defer rows.Close()

	var out []*models.ClaimRequest
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim request: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindPendingByCompany(ctx context.Context, companyID id.CompanyID) (*models.ClaimRequest, error) {
	pending, err := s.ListByCompany(ctx, companyID, models.StatusPending)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, fmt.Errorf("no pending claim: %w", sentinel.ErrNotFound)
	}
	return pending[0], nil
}

func (s *PostgresStore) Delete(ctx context.Context, claimID id.ClaimRequestID) error {
	result, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx,
		`DELETE FROM claim_requests WHERE id = $1`, uuid.UUID(claimID))
	if err != nil {
		return fmt.Errorf("delete claim request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete claim request rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("claim request not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// Execute locks the row, runs validate then mutate, and writes the result in
// the same transaction.
func (s *PostgresStore) Execute(ctx context.Context, claimID id.ClaimRequestID, validate func(*models.ClaimRequest) error, mutate func(*models.ClaimRequest)) (*models.ClaimRequest, error) {
	var updated *models.ClaimRequest
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		c, err := s.findByID(ctx, claimID, true)
		if err != nil {
			return err
		}
		if err := validate(c); err != nil {
			return err
		}
		mutate(c)
		if _, err := s.write(ctx, c, ""); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateIfStatus is a compare-and-set keyed on status: the UPDATE only matches
// while the row is still in expected. Losing the race reports
// sentinel.ErrInvalidState.
func (s *PostgresStore) UpdateIfStatus(ctx context.Context, claimID id.ClaimRequestID, expected models.ClaimStatus, mutate func(*models.ClaimRequest) error) (*models.ClaimRequest, error) {
	c, err := s.FindByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status != expected {
		return nil, fmt.Errorf("claim request is %s, expected %s: %w", c.Status, expected, sentinel.ErrInvalidState)
	}
	if err := mutate(c); err != nil {
		return nil, err
	}
	rows, err := s.write(ctx, c, expected)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		current, err := s.FindByID(ctx, claimID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("claim request is %s, expected %s: %w", current.Status, expected, sentinel.ErrInvalidState)
	}
	return c, nil
}

// write stores the mutable columns of c. A non-empty expected status turns it
// into a conditional update.
func (s *PostgresStore) write(ctx context.Context, c *models.ClaimRequest, expected models.ClaimStatus) (int64, error) {
	query := `
		UPDATE claim_requests
		SET status = $2,
		    business_email_verified = $3,
		    supervisor_email_verified = $4,
		    updated_at = $5,
		    approved_at = $6
		WHERE id = $1`
	args := []any{
		uuid.UUID(c.ID),
		string(c.Status),
		c.BusinessEmailVerified,
		c.SupervisorEmailVerified,
		c.UpdatedAt,
		c.ApprovedAt,
	}
	if expected != "" {
		query += ` AND status = $7`
		args = append(args, string(expected))
	}
	result, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err, onePendingPerCompany) {
			return 0, fmt.Errorf("company %s already has a pending claim: %w", c.CompanyID, sentinel.ErrConflict)
		}
		return 0, fmt.Errorf("update claim request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update claim request rows affected: %w", err)
	}
	return rows, nil
}
