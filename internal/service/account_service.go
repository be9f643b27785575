package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/yasinhessnawi1/hideme-auth/internal/auth"
	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
	"github.com/yasinhessnawi1/hideme-auth/internal/metrics"
	"github.com/yasinhessnawi1/hideme-auth/internal/models"
	"github.com/yasinhessnawi1/hideme-auth/internal/repository"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils"
)

// PasswordHasher hashes and verifies account passwords
type PasswordHasher interface {
	Hash(password string) (hash string, salt string, err error)
	Verify(password, hash, salt string) bool
}

// Session is the result of every operation that logs the caller in
type Session struct {
	Account   *models.Account
	Token     string
	ExpiresAt time.Time
}

// AccountService handles signup, login and password changes
type AccountService struct {
	accounts repository.AccountRepository
	hasher   PasswordHasher
	tokens   auth.TokenIssuer
	metrics  *metrics.Metrics
	now      func() time.Time

	decoyOnce sync.Once
	decoyHash string
	decoySalt string
}

// passwordFields are the columns a password change writes
var passwordFields = repository.OnlyFields(
	constants.ColumnPasswordHash,
	constants.ColumnSalt,
	constants.ColumnPasswordChangedAt,
)

// NewAccountService creates a new AccountService. m may be nil.
func NewAccountService(
	accounts repository.AccountRepository,
	hasher PasswordHasher,
	tokens auth.TokenIssuer,
	m *metrics.Metrics,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		metrics:  m,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

// issueSession mints a token for the account and wraps it with the sanitized account
func issueSession(tokens auth.TokenIssuer, account *models.Account) (*Session, error) {
	token, expiresAt, err := tokens.Issue(account.ID)
	if err != nil {
		return nil, utils.NewInternalServerError(fmt.Errorf("failed to issue session token: %w", err))
	}
	return &Session{
		Account:   account.Sanitize(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// verifyDecoy runs a verification against a fixed hash so a login for an
// unknown email costs the same as a wrong password.
func (s *AccountService) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, salt, err := s.hasher.Hash(constants.DecoyPassword)
		if err != nil {
			return
		}
		s.decoyHash, s.decoySalt = hash, salt
	})
	if s.decoyHash == "" {
		return
	}
	s.hasher.Verify(password, s.decoyHash, s.decoySalt)
}

// passwordChangedStamp truncates the change time to the token clock, so the
// token minted right after the change is not older than it.
func passwordChangedStamp(now time.Time) *time.Time {
	stamp := now.Truncate(auth.TokenTimePrecision)
	return &stamp
}

// Signup creates an account and logs it in
func (s *AccountService) Signup(ctx context.Context, req *models.SignupRequest) (session *Session, err error) {
	defer func() { s.metrics.AuthEvent(metrics.OpSignup, err) }()

	req.Email = utils.NormalizeEmail(req.Email)

	if req.Password != req.PasswordConfirm {
		return nil, utils.NewValidationError("passwordConfirm", constants.MsgPasswordsDoNotMatch)
	}
	if err := utils.ValidateStruct(req); err != nil {
		if utils.IsValidationError(err) {
			utils.LogAuth(constants.LogEventSignup, 0, req.Email, false, "invalid input")
		}
		return nil, err
	}

	exists, err := s.accounts.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		utils.LogAuth(constants.LogEventSignup, 0, req.Email, false, "email taken")
		return nil, utils.NewDuplicateError("Account", constants.ColumnEmail, req.Email)
	}

	passwordHash, salt, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := models.NewAccount(req.Email)
	account.PasswordHash = passwordHash
	account.Salt = salt

	// Create maps a unique violation from a concurrent signup to the same duplicate error
	if err := s.accounts.Create(ctx, account); err != nil {
		if utils.IsDuplicateError(err) {
			utils.LogAuth(constants.LogEventSignup, 0, req.Email, false, "email taken")
		}
		return nil, err
	}

	utils.LogAuth(constants.LogEventSignup, account.ID, account.Email, true, "")

	return issueSession(s.tokens, account)
}

// Login verifies credentials. Every failure looks the same to the caller.
func (s *AccountService) Login(ctx context.Context, req *models.LoginRequest) (session *Session, err error) {
	defer func() { s.metrics.AuthEvent(metrics.OpLogin, err) }()

	email := utils.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		utils.LogAuth(constants.LogEventLogin, 0, email, false, "missing credentials")
		return nil, utils.NewBadCredentialsError()
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if utils.IsNotFoundError(err) {
			s.verifyDecoy(req.Password)
			utils.LogAuth(constants.LogEventLogin, 0, email, false, "account not found")
			return nil, utils.NewBadCredentialsError()
		}
		return nil, err
	}

	if !s.hasher.Verify(req.Password, account.PasswordHash, account.Salt) {
		utils.LogAuth(constants.LogEventLogin, account.ID, email, false, "wrong password")
		return nil, utils.NewBadCredentialsError()
	}

	utils.LogAuth(constants.LogEventLogin, account.ID, email, true, "")

	return issueSession(s.tokens, account)
}

// UpdatePassword changes the password of a logged in account after checking
// the current one, and logs the caller in again.
func (s *AccountService) UpdatePassword(ctx context.Context, current *models.Account, req *models.UpdatePasswordRequest) (session *Session, err error) {
	defer func() { s.metrics.AuthEvent(metrics.OpUpdatePassword, err) }()

	// The context account may be stale; check against the stored hash
	account, err := s.accounts.GetByID(ctx, current.ID)
	if err != nil {
		if utils.IsNotFoundError(err) {
			return nil, utils.NewAccountGoneError()
		}
		return nil, err
	}

	if !s.hasher.Verify(req.PasswordCurrent, account.PasswordHash, account.Salt) {
		utils.LogAuth(constants.LogEventUpdatePassword, account.ID, account.Email, false, "wrong current password")
		return nil, utils.New(utils.ErrBadCredentials, http.StatusUnauthorized, constants.MsgCurrentPasswordWrong)
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
	account.PasswordChangedAt = passwordChangedStamp(s.now())

	// Only the password columns, so a reset issued meanwhile is left alone
	if err := s.accounts.Save(ctx, account, passwordFields); err != nil {
		return nil, err
	}

	utils.LogAuth(constants.LogEventUpdatePassword, account.ID, account.Email, true, "")

	return issueSession(s.tokens, account)
}
