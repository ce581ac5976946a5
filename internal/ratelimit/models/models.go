package models

import (
	"strings"
	"time"
)

// EndpointClass groups routes that share one per-IP window.
type EndpointClass string

const (
	ClassClaims   EndpointClass = "claims"
	ClassIdentity EndpointClass = "identity"
)

// Limit is the request budget of one class.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RateLimitExceededResponse is the 429 body.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

const keyPrefix = "claimdesk:ratelimit:"

// SanitizeKeySegment escapes the key delimiter so a crafted identifier cannot
// address another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// NewIPKey is the bucket key of one client IP within a class.
func NewIPKey(class EndpointClass, ip string) string {
	if ip == "" {
		ip = "unknown"
	}
	return keyPrefix + string(class) + ":" + SanitizeKeySegment(ip)
}
