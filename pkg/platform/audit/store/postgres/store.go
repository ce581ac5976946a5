package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "claimdesk/pkg/domain"
	audit "claimdesk/pkg/platform/audit"
	txcontext "claimdesk/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table. Appends join the
// caller's transaction when one is in the context, so the approval event
// commits together with the promotion.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func nullableUUID(u uuid.UUID) any {
	if u == uuid.Nil {
		return nil
	}
	return u
}

// Append inserts an event. Duplicate IDs are ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		eventID = uuid.New()
	}
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, action, user_id, company_id, claim_request_id,
			subject, reason, request_id, client_ip, user_agent, bot
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		eventID,
		string(event.Category),
		event.Timestamp,
		event.Action,
		nullableUUID(uuid.UUID(event.UserID)),
		nullableUUID(uuid.UUID(event.CompanyID)),
		nullableUUID(uuid.UUID(event.ClaimRequestID)),
		event.Subject,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		event.UserAgent,
		event.Bot,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByClaim returns the events of one claim request, oldest first.
func (s *Store) ListByClaim(ctx context.Context, claimRequestID id.ClaimRequestID) ([]audit.Event, error) {
	query := `
		SELECT id, category, timestamp, action, user_id, company_id, claim_request_id,
			   subject, reason, request_id, client_ip, user_agent, bot
		FROM audit_events
		WHERE claim_request_id = $1
		ORDER BY timestamp ASC
	`
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, uuid.UUID(claimRequestID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e                          audit.Event
			eventID                    uuid.UUID
			category                   string
			userID, companyID, claimID uuid.NullUUID
		)
		if err := rows.Scan(&eventID, &category, &e.Timestamp, &e.Action, &userID, &companyID, &claimID,
			&e.Subject, &e.Reason, &e.RequestID, &e.ClientIP, &e.UserAgent, &e.Bot); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.ID = eventID.String()
		e.Category = audit.EventCategory(category)
		e.UserID = id.UserID(userID.UUID)
		e.CompanyID = id.CompanyID(companyID.UUID)
		e.ClaimRequestID = id.ClaimRequestID(claimID.UUID)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
