package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped with %w) so services can translate them into coded domain
// errors without knowing which backend produced them.
//
//   - ErrNotFound: record does not exist in the store
//   - ErrConflict: a uniqueness rule would be violated (email taken, pending claim exists)
//   - ErrExpired: verification token is past its expiry
//   - ErrAlreadyUsed: verification token was consumed before
//   - ErrInvalidState: conditional update lost (record not in the expected status)
//   - ErrUnavailable: downstream dependency (mail relay, lock backend) failed transiently
//
// Input validation belongs to pkg/domain-errors, not here.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
