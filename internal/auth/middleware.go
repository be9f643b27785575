// Package auth provides session tokens, password hashing and the session
// middleware guarding protected routes.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
	"github.com/yasinhessnawi1/hideme-auth/internal/models"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils"
)

// ContextKey is a custom type for context keys to prevent collisions.
type ContextKey string

// Context keys for storing the authenticated account.
const (
	// AccountContextKey is the context key for the authenticated *models.Account.
	AccountContextKey ContextKey = constants.AccountContextKey
)

// AccountFinder resolves the account named by a session token
type AccountFinder interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
}

// RejectionObserver is told about every rejected session
type RejectionObserver interface {
	SessionRejected(reason string)
}

// SessionMiddleware authenticates requests from the session cookie or a
// bearer token and attaches the account to the request context.
type SessionMiddleware struct {
	tokens     TokenValidator
	accounts   AccountFinder
	cookieName string
	observer   RejectionObserver
}

// NewSessionMiddleware creates a SessionMiddleware. observer may be nil.
func NewSessionMiddleware(tokens TokenValidator, accounts AccountFinder, cookieName string, observer RejectionObserver) *SessionMiddleware {
	if cookieName == "" {
		cookieName = constants.SessionCookie
	}
	return &SessionMiddleware{
		tokens:     tokens,
		accounts:   accounts,
		cookieName: cookieName,
		observer:   observer,
	}
}

// tokenFromRequest reads the session cookie first and the Authorization
// header second.
func (m *SessionMiddleware) tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get(constants.HeaderAuthorization)
	if strings.HasPrefix(authHeader, constants.BearerTokenPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, constants.BearerTokenPrefix))
	}

	return ""
}

// Authenticate resolves the account behind the request's session token.
func (m *SessionMiddleware) Authenticate(r *http.Request) (*models.Account, error) {
	token := m.tokenFromRequest(r)
	if token == "" {
		return nil, utils.NewUnauthenticatedError()
	}

	claims, err := m.tokens.Validate(token)
	if err != nil {
		return nil, utils.NewInvalidTokenError()
	}

	account, err := m.accounts.GetByID(r.Context(), claims.AccountID)
	if err != nil {
		if utils.IsNotFoundError(err) {
			return nil, utils.NewAccountGoneError()
		}
		return nil, err
	}

	if account.ChangedPasswordAfter(claims.IssuedAtTime()) {
		return nil, utils.NewPasswordChangedError()
	}

	return account, nil
}

// RequireSession rejects requests without a valid session. All four session
// failures are logged with their own kind and answered with the same 401.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, err := m.Authenticate(r)
		if err != nil {
			if reason := rejectionReason(err); reason != "" {
				log.Info().
					Str("reason", reason).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("Session rejected")

				if m.observer != nil {
					m.observer.SessionRejected(reason)
				}
			}

			utils.ErrorFromAppError(w, utils.ParseError(err))
			return
		}

		log.Debug().
			Int64("account_id", account.ID).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Session accepted")

		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
	})
}

func rejectionReason(err error) string {
	if !utils.IsSessionError(err) {
		return ""
	}
	switch {
	case errors.Is(err, utils.ErrUnauthenticated):
		return constants.RejectNoToken
	case errors.Is(err, utils.ErrInvalidToken):
		return constants.RejectInvalidToken
	case errors.Is(err, utils.ErrAccountGone):
		return constants.RejectAccountGone
	case errors.Is(err, utils.ErrPasswordChanged):
		return constants.RejectPasswordChanged
	default:
		return ""
	}
}

// WithAccount returns a copy of ctx carrying the account
func WithAccount(ctx context.Context, account *models.Account) context.Context {
	return context.WithValue(ctx, AccountContextKey, account)
}

// AccountFromContext extracts the authenticated account from the context.
func AccountFromContext(ctx context.Context) (*models.Account, bool) {
	account, ok := ctx.Value(AccountContextKey).(*models.Account)
	return account, ok && account != nil
}
