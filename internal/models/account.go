package models

import (
	"time"
)

// Account represents a registered account of the HideMe application.
// Credential and reset fields are never serialized.
type Account struct {
	ID                   int64      `json:"id" db:"account_id"`
	Email                string     `json:"email" db:"email" validate:"required,email,max=255"`
	PasswordHash         string     `json:"-" db:"password_hash"`
	Salt                 string     `json:"-" db:"salt"`
	PasswordChangedAt    *time.Time `json:"-" db:"password_changed_at"`
	PasswordResetToken   string     `json:"-" db:"password_reset_token"`
	PasswordResetExpires *time.Time `json:"-" db:"password_reset_expires"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// NewAccount creates a new Account with the given email.
// Password fields are populated later during signup.
func NewAccount(email string) *Account {
	now := time.Now()
	return &Account{
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TableName returns the database table name for the Account model.
func (a *Account) TableName() string {
	return "accounts"
}

// Sanitize returns a copy with every credential and reset field cleared.
func (a *Account) Sanitize() *Account {
	sanitized := *a
	sanitized.PasswordHash = ""
	sanitized.Salt = ""
	sanitized.PasswordChangedAt = nil
	sanitized.PasswordResetToken = ""
	sanitized.PasswordResetExpires = nil
	return &sanitized
}

// ChangedPasswordAfter reports whether the password was changed after a
// token issued at issuedAt. Accounts that never changed their password
// accept every token.
func (a *Account) ChangedPasswordAfter(issuedAt time.Time) bool {
	if a.PasswordChangedAt == nil {
		return false
	}
	return a.PasswordChangedAt.After(issuedAt)
}

// HasActiveReset reports whether a reset token is pending and unexpired at now.
func (a *Account) HasActiveReset(now time.Time) bool {
	return a.PasswordResetToken != "" &&
		a.PasswordResetExpires != nil &&
		a.PasswordResetExpires.After(now)
}

// ClearReset drops any pending reset token.
func (a *Account) ClearReset() {
	a.PasswordResetToken = ""
	a.PasswordResetExpires = nil
}
