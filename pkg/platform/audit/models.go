package audit

import (
	"time"

	id "claimdesk/pkg/domain"
)

// EventCategory classifies audit events by their retention and routing needs.
type EventCategory string

const (
	// CategoryCompliance covers ownership changes of a listing. Kept long term.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers token misuse and suspicious link traffic.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine workflow progress. Can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It stays
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID             string
	Category       EventCategory
	Timestamp      time.Time
	Action         string
	UserID         id.UserID
	CompanyID      id.CompanyID
	ClaimRequestID id.ClaimRequestID
	Subject        string
	Reason         string
	RequestID      string
	ClientIP       string
	UserAgent      string
	// Bot is set when the request that triggered the event came from a crawler
	// or a mail link scanner rather than a person.
	Bot bool
}

type AuditEvent string

const (
	// Claim lifecycle
	EventClaimSubmitted     AuditEvent = "claim_submitted"
	EventClaimCompensated   AuditEvent = "claim_compensated"
	EventSupervisorVerified AuditEvent = "supervisor_verified"
	EventBusinessVerified   AuditEvent = "business_email_verified"
	EventClaimApproved      AuditEvent = "claim_approved"

	// Token misuse
	EventTokenRejected AuditEvent = "verification_token_rejected"

	// Identity
	EventAccountCreated    AuditEvent = "account_created"
	EventAccountDeleted    AuditEvent = "account_deleted"
	EventEmailConfirmed    AuditEvent = "email_confirmed"
	EventAuthFailed        AuditEvent = "auth_failed"
	EventAccessTokenIssued AuditEvent = "access_token_issued"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventClaimSubmitted:     CategoryCompliance,
	EventClaimApproved:      CategoryCompliance,
	EventAccountCreated:     CategoryCompliance,
	EventAccountDeleted:     CategoryCompliance,
	EventClaimCompensated:   CategoryCompliance,
	EventTokenRejected:      CategorySecurity,
	EventAuthFailed:         CategorySecurity,
	EventSupervisorVerified: CategoryOperations,
	EventBusinessVerified:   CategoryOperations,
	EventEmailConfirmed:     CategoryOperations,
	EventAccessTokenIssued:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
