package user

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

// PostgresStore persists directory users. Writes join a transaction carried by ctx.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, display_name, role, company_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var companyID *uuid.UUID
	if user.CompanyID != nil {
		cid := uuid.UUID(*user.CompanyID)
		companyID = &cid
	}
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(user.ID),
		user.Email,
		user.DisplayName,
		string(user.Role),
		companyID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `
		SELECT id, email, display_name, role, company_id, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var (
		u         models.User
		uid       uuid.UUID
		role      string
		companyID uuid.NullUUID
	)
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID)).Scan(
		&uid, &u.Email, &u.DisplayName, &role, &companyID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = id.UserID(uid)
	u.Role = models.Role(role)
	if companyID.Valid {
		cid := id.CompanyID(companyID.UUID)
		u.CompanyID = &cid
	}
	return &u, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	result, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) PromoteToCompany(ctx context.Context, userID id.UserID, companyID id.CompanyID, now time.Time) error {
	query := `
		UPDATE users
		SET role = $2, company_id = $3, updated_at = $4
		WHERE id = $1
	`
	result, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(userID), string(models.RoleCompany), uuid.UUID(companyID), now)
	if err != nil {
		return fmt.Errorf("promote user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("promote user rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}
