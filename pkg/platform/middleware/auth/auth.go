package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/httputil"
	"claimdesk/pkg/requestcontext"
)

// JWTValidator validates bearer access tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims are the claims the middleware relies on.
type JWTClaims struct {
	UserID string
	Email  string
	JTI    string
}

type contextKeyEmail struct{}

// GetEmail returns the authenticated account email, if any.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(contextKeyEmail{}).(string)
	return email
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
		Error:            "unauthorized",
		ErrorDescription: description,
	})
}

func bearerToken(r *http.Request) (string, bool) {
	return strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// authenticate validates the token and returns a context carrying the caller.
func authenticate(ctx context.Context, validator JWTValidator, token string) (context.Context, error) {
	claims, err := validator.ValidateToken(token)
	if err != nil {
		return ctx, err
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return ctx, err
	}
	ctx = requestcontext.WithUserID(ctx, userID)
	ctx = context.WithValue(ctx, contextKeyEmail{}, claims.Email)
	return ctx, nil
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := bearerToken(r)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}
			authed, err := authenticate(ctx, validator, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(authed))
		})
	}
}

// OptionalAuth attaches the caller when a bearer token is present. A present
// but invalid token is still rejected.
func OptionalAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			authed, err := authenticate(ctx, validator, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid optional token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(authed))
		})
	}
}
