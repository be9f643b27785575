// Package handlers provides HTTP request handlers for the HideMe authentication API.
package handlers

import (
	"context"

	"github.com/yasinhessnawi1/hideme-auth/internal/models"
	"github.com/yasinhessnawi1/hideme-auth/internal/service"
)

// AccountServiceInterface defines the account operations required by AuthHandler.
// It lets the handlers be tested without a store or a password hasher.
type AccountServiceInterface interface {
	// Signup creates an account and opens a session for it.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - req: Email, password and password confirmation
	//
	// Returns:
	//   - The new session (sanitized account, signed token, expiry)
	//   - A validation error if the input is rejected or the email is taken
	Signup(ctx context.Context, req *models.SignupRequest) (*service.Session, error)

	// Login verifies credentials and opens a session.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - req: Email and password
	//
	// Returns:
	//   - The new session
	//   - A bad-credentials error for every credential failure
	Login(ctx context.Context, req *models.LoginRequest) (*service.Session, error)

	// UpdatePassword changes the password of the signed-in account and reissues the session.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - current: The account resolved by the session middleware
	//   - req: Current password plus the new password and its confirmation
	//
	// Returns:
	//   - A fresh session issued after the change
	//   - An error if the current password is wrong or the new one is invalid
	UpdatePassword(ctx context.Context, current *models.Account, req *models.UpdatePasswordRequest) (*service.Session, error)
}

// PasswordResetServiceInterface defines the reset-flow operations required by AuthHandler.
type PasswordResetServiceInterface interface {
	// ForgotPassword issues a reset token and mails a link built on the
	// configured reset URL base.
	ForgotPassword(ctx context.Context, email string) error

	// ResetPassword consumes a reset token, sets the new password and opens a session.
	ResetPassword(ctx context.Context, token string, req *models.ResetPasswordRequest) (*service.Session, error)
}

// Compile-time checks
var (
	_ AccountServiceInterface       = (*service.AccountService)(nil)
	_ PasswordResetServiceInterface = (*service.PasswordResetService)(nil)
)
