package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/hideme-auth/internal/auth"
	"github.com/yasinhessnawi1/hideme-auth/internal/config"
	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
	"github.com/yasinhessnawi1/hideme-auth/internal/metrics"
	"github.com/yasinhessnawi1/hideme-auth/internal/models"
	"github.com/yasinhessnawi1/hideme-auth/internal/repository"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils"
)

const resetMessageFormat = "Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s.\n" +
	"If you didn't forget your password, please ignore this email!"

// PasswordResetService issues reset tokens by mail and exchanges them for a
// new password.
type PasswordResetService struct {
	accounts    repository.AccountRepository
	hasher      PasswordHasher
	tokens      auth.TokenIssuer
	mailer      Mailer
	metrics     *metrics.Metrics
	tokenTTL    time.Duration
	urlBase     string
	mailTimeout time.Duration
	now         func() time.Time
}

// NewPasswordResetService creates a new PasswordResetService. m may be nil.
func NewPasswordResetService(
	accounts repository.AccountRepository,
	hasher PasswordHasher,
	tokens auth.TokenIssuer,
	mailer Mailer,
	cfg *config.AppConfig,
	m *metrics.Metrics,
) *PasswordResetService {
	ttl := cfg.PasswordReset.TokenTTL
	if ttl <= 0 {
		ttl = constants.DefaultResetTokenTTL
	}
	return &PasswordResetService{
		accounts:    accounts,
		hasher:      hasher,
		tokens:      tokens,
		mailer:      mailer,
		metrics:     m,
		tokenTTL:    ttl,
		urlBase:     cfg.PasswordReset.URLBase,
		mailTimeout: mailTimeout(&cfg.Email),
		now:         time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *PasswordResetService) WithClock(now func() time.Time) *PasswordResetService {
	s.now = now
	return s
}

// ResetURL builds the link mailed to the user from the configured base
func (s *PasswordResetService) ResetURL(token string) string {
	return strings.TrimSuffix(s.urlBase, "/") + constants.UsersBasePath + "/resetPassword/" + token
}

// resetFields are the only columns the forgot-password flow writes
var resetFields = repository.OnlyFields(constants.ColumnPasswordResetToken, constants.ColumnPasswordResetExpires)

// ForgotPassword stores a reset digest on the account and mails the secret.
// When the mail cannot be sent the digest is removed again, unless a newer
// one replaced it in the meantime.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, email string) (err error) {
	defer func() { s.metrics.AuthEvent(metrics.OpForgotPassword, err) }()

	email = utils.NormalizeEmail(email)

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if utils.IsNotFoundError(err) {
			utils.LogAuth(constants.LogEventForgotPassword, 0, email, false, "account not found")
			return utils.New(utils.ErrNotFound, http.StatusNotFound, constants.MsgNoAccountForEmail)
		}
		return err
	}

	token, digest, err := auth.GenerateResetToken()
	if err != nil {
		return utils.NewInternalServerError(err)
	}

	expires := s.now().Add(s.tokenTTL)
	account.PasswordResetToken = digest
	account.PasswordResetExpires = &expires

	if err := s.accounts.Save(ctx, account, repository.SkipValidation(), resetFields); err != nil {
		return err
	}

	resetURL := s.ResetURL(token)

	mailCtx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()

	sendErr := s.mailer.SendPasswordReset(mailCtx, account, resetURL, fmt.Sprintf(resetMessageFormat, resetURL))
	s.metrics.ResetEmail(sendErr)

	if sendErr != nil {
		account.ClearReset()
		if err := s.accounts.Save(ctx, account, repository.SkipValidation(), resetFields, repository.IfResetToken(digest)); err != nil {
			if utils.IsNotFoundError(err) {
				log.Info().Int64("account_id", account.ID).Msg("Reset token replaced before rollback, leaving it in place")
			} else {
				log.Error().Err(err).Int64("account_id", account.ID).Msg("Failed to roll back reset token after delivery failure")
			}
		}
		utils.LogAuth(constants.LogEventForgotPassword, account.ID, email, false, "delivery failed")
		return utils.NewDeliveryError(sendErr)
	}

	utils.LogAuth(constants.LogEventForgotPassword, account.ID, email, true, "")
	return nil
}

func invalidResetToken() error {
	return utils.NewInvalidOrExpiredTokenError()
}

// ResetPassword exchanges a reset secret for a new password. Only one of
// several concurrent confirmations of the same secret succeeds.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token string, req *models.ResetPasswordRequest) (session *Session, err error) {
	defer func() { s.metrics.AuthEvent(metrics.OpResetPassword, err) }()

	if token == "" {
		return nil, invalidResetToken()
	}

	now := s.now()
	digest := auth.HashResetToken(token)

	account, err := s.accounts.GetByResetToken(ctx, digest, now)
	if err != nil {
		if utils.IsNotFoundError(err) {
			utils.LogAuth(constants.LogEventResetPassword, 0, "", false, "unknown or expired token")
			return nil, invalidResetToken()
		}
		return nil, err
	}

	if !auth.ResetTokenMatches(account.PasswordResetToken, token) || !account.HasActiveReset(now) {
		return nil, invalidResetToken()
	}

	if err := utils.ValidatePasswordPair(req.Password, req.PasswordConfirm); err != nil {
		return nil, err
	}

	passwordHash, salt, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account.PasswordHash = passwordHash
	account.Salt = salt
	account.PasswordChangedAt = passwordChangedStamp(now)

	if err := s.accounts.ConsumeResetToken(ctx, account, digest, now); err != nil {
		if utils.StatusCode(err) == http.StatusBadRequest {
			utils.LogAuth(constants.LogEventResetPassword, account.ID, account.Email, false, "token already used")
		}
		return nil, err
	}

	utils.LogAuth(constants.LogEventResetPassword, account.ID, account.Email, true, "")

	return issueSession(s.tokens, account)
}

// ClearExpiredTokens drops reset digests whose window has passed
func (s *PasswordResetService) ClearExpiredTokens(ctx context.Context) (int64, error) {
	return s.accounts.ClearExpiredResetTokens(ctx, s.now())
}
