package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/hideme-auth/internal/auth"
	"github.com/yasinhessnawi1/hideme-auth/internal/config"
	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
	"github.com/yasinhessnawi1/hideme-auth/internal/metrics"
	"github.com/yasinhessnawi1/hideme-auth/internal/models"
	"github.com/yasinhessnawi1/hideme-auth/internal/service"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils"
)

// AuthHandler handles the account and session routes under /api/v1/users
type AuthHandler struct {
	accounts AccountServiceInterface
	resets   PasswordResetServiceInterface
	cookie   *config.CookieSettings
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	accounts AccountServiceInterface,
	resets PasswordResetServiceInterface,
	cookie *config.CookieSettings,
	m *metrics.Metrics,
) *AuthHandler {
	if accounts == nil {
		panic("accounts service cannot be nil")
	}
	if resets == nil {
		panic("password reset service cannot be nil")
	}
	return &AuthHandler{
		accounts: accounts,
		resets:   resets,
		cookie:   cookie,
		metrics:  m,
		now:      time.Now,
	}
}

// sendSession sets the session cookie and writes the token envelope.
func (h *AuthHandler) sendSession(w http.ResponseWriter, statusCode int, session *service.Session) {
	http.SetCookie(w, auth.NewSessionCookie(session.Token, h.cookie, h.now()))
	utils.WithToken(w, statusCode, session.Token, map[string]interface{}{
		"user": session.Account,
	})
}

// Signup handles account creation
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	session, err := h.accounts.Signup(r.Context(), &req)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	h.sendSession(w, http.StatusCreated, session)
}

// Login handles credential verification
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	session, err := h.accounts.Login(r.Context(), &req)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	h.sendSession(w, http.StatusOK, session)
}

// Logout overwrites the session cookie. Tokens are stateless, so a bearer
// token stays valid until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ExpiredSessionCookie(h.cookie))
	h.metrics.AuthEvent(metrics.OpLogout, nil)

	log.Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("event", constants.LogEventLogout).
		Msg("Session cookie cleared")

	utils.JSON(w, http.StatusOK, nil)
}

// ForgotPassword starts the reset flow for an email address
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	if err := h.resets.ForgotPassword(r.Context(), req.Email); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.Message(w, http.StatusOK, constants.MsgResetTokenSent)
}

// ResetPassword completes the reset flow with the token from the URL
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, constants.ParamResetToken)

	var req models.ResetPasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	session, err := h.resets.ResetPassword(r.Context(), token, &req)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	h.sendSession(w, http.StatusOK, session)
}

// UpdatePassword changes the password of the signed-in account
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		utils.ErrorFromAppError(w, utils.NewUnauthenticatedError())
		return
	}

	var req models.UpdatePasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	session, err := h.accounts.UpdatePassword(r.Context(), account, &req)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	h.sendSession(w, http.StatusOK, session)
}

// Me returns the signed-in account
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		utils.ErrorFromAppError(w, utils.NewUnauthenticatedError())
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"user": account.Sanitize(),
	})
}
