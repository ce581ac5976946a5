package testutil

import (
	"net/http"
	"time"

	id "claimdesk/pkg/domain"
	"claimdesk/pkg/requestcontext"
)

// WithUserID marks the request as authenticated, as the bearer middleware would.
func WithUserID(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
