package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	identitysvc "claimdesk/internal/identity/service"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/platform/httputil"
	"claimdesk/pkg/requestcontext"
)

// Service is the identity provider surface exposed over HTTP.
type Service interface {
	ConfirmEmail(ctx context.Context, token string) (string, error)
	Authenticate(ctx context.Context, email, passphrase string) (*identitysvc.AccessToken, error)
}

// Handler serves the browser-facing verification link and the token endpoint.
type Handler struct {
	logger   *slog.Logger
	identity Service
}

func New(identity Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, identity: identity}
}

// Register mounts the identity routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/identity/verify-email", h.handleVerifyEmail)
	r.Post("/identity/token", h.handleToken)
}

// handleVerifyEmail is reached from an email client, so it answers with a
// redirect or plain text rather than JSON.
func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	continueURL, err := h.identity.ConfirmEmail(ctx, r.URL.Query().Get("token"))
	if err != nil {
		status := http.StatusInternalServerError
		body := "Something went wrong while verifying your email."
		switch {
		case dErrors.HasCode(err, dErrors.CodeValidation), dErrors.HasCode(err, dErrors.CodeInvalidToken):
			status = http.StatusBadRequest
			body = "This verification link is invalid or has expired."
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			status = http.StatusNotFound
			body = "The account for this link no longer exists."
		}
		logFn := h.logger.WarnContext
		if status == http.StatusInternalServerError {
			logFn = h.logger.ErrorContext
		}
		logFn(ctx, "email verification failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WritePlainText(w, status, body)
		return
	}

	if continueURL == "" {
		httputil.WritePlainText(w, http.StatusOK, "Your email address is verified. You can close this window.")
		return
	}
	http.Redirect(w, r, continueURL, http.StatusFound)
}

type tokenRequest struct {
	Email      string `json:"email"`
	Passphrase string `json:"passphrase"`
}

func (req *tokenRequest) Validate() error {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Passphrase == "" {
		return dErrors.New(dErrors.CodeValidation, "email and passphrase are required")
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      string `json:"user_id"`
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[tokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, err := h.identity.Authenticate(ctx, req.Email, req.Passphrase)
	if err != nil {
		h.logger.WarnContext(ctx, "token request rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token.Token,
		TokenType:   token.TokenType,
		ExpiresIn:   int64(token.ExpiresIn.Seconds()),
		UserID:      token.UserID.String(),
	})
}
