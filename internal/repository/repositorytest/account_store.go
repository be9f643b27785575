// Package repositorytest provides an in-memory AccountRepository for tests
// that exercise services or the HTTP surface without a database.
package repositorytest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
	"github.com/yasinhessnawi1/hideme-auth/internal/models"
	"github.com/yasinhessnawi1/hideme-auth/internal/repository"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils"
)

// AccountStore keeps accounts in a map guarded by a mutex. ConsumeResetToken
// checks and clears the token under the lock, like the conditional UPDATE of
// the SQL repository.
type AccountStore struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]models.Account

	saves   int
	saveErr error
}

var _ repository.AccountRepository = (*AccountStore)(nil)

// NewAccountStore returns an empty store
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[int64]models.Account)}
}

func (m *AccountStore) Create(ctx context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return utils.NewDuplicateError("Account", "email", account.Email)
		}
	}
	m.nextID++
	account.ID = m.nextID
	m.accounts[account.ID] = *account
	return nil
}

func (m *AccountStore) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, utils.NewNotFoundError("Account", id)
	}
	return &a, nil
}

func (m *AccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			found := a
			return &found, nil
		}
	}
	return nil, utils.NewNotFoundError("Account", email)
}

func (m *AccountStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if utils.IsNotFoundError(err) {
		return false, nil
	}
	return err == nil, err
}

func (m *AccountStore) Save(ctx context.Context, account *models.Account, opts ...repository.SaveOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.accounts[account.ID]
	if !ok {
		return utils.NewNotFoundError("Account", account.ID)
	}

	options := repository.NewSaveOptions(opts...)
	if options.ResetToken != nil && stored.PasswordResetToken != *options.ResetToken {
		return utils.NewNotFoundError("Reset token", "[REDACTED]")
	}

	for _, column := range options.Columns() {
		switch column {
		case constants.ColumnEmail:
			stored.Email = account.Email
		case constants.ColumnPasswordHash:
			stored.PasswordHash = account.PasswordHash
		case constants.ColumnSalt:
			stored.Salt = account.Salt
		case constants.ColumnPasswordChangedAt:
			stored.PasswordChangedAt = account.PasswordChangedAt
		case constants.ColumnPasswordResetToken:
			stored.PasswordResetToken = account.PasswordResetToken
		case constants.ColumnPasswordResetExpires:
			stored.PasswordResetExpires = account.PasswordResetExpires
		}
	}
	stored.UpdatedAt = time.Now()
	m.accounts[account.ID] = stored
	return nil
}

func (m *AccountStore) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accounts {
		if a.PasswordResetToken == tokenHash && a.PasswordResetExpires != nil && a.PasswordResetExpires.After(now) {
			found := a
			return &found, nil
		}
	}
	return nil, utils.NewNotFoundError("Reset token", "[REDACTED]")
}

func (m *AccountStore) ConsumeResetToken(ctx context.Context, account *models.Account, tokenHash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.accounts[account.ID]
	if !ok || stored.PasswordResetToken != tokenHash || stored.PasswordResetExpires == nil || !stored.PasswordResetExpires.After(now) {
		return utils.NewInvalidOrExpiredTokenError()
	}

	stored.PasswordHash = account.PasswordHash
	stored.Salt = account.Salt
	stored.PasswordChangedAt = account.PasswordChangedAt
	stored.ClearReset()
	m.accounts[account.ID] = stored

	account.ClearReset()
	return nil
}

func (m *AccountStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, a := range m.accounts {
		if a.PasswordResetExpires != nil && !a.PasswordResetExpires.After(now) {
			a.ClearReset()
			m.accounts[id] = a
			n++
		}
	}
	return n, nil
}

// Get returns a copy of the stored account, or the zero value
func (m *AccountStore) Get(id int64) models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id]
}

// Delete removes an account, as an administrator would
func (m *AccountStore) Delete(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
}

// Saves reports how many times Save was called
func (m *AccountStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FailSaves makes every following Save return err. nil restores normal behaviour.
func (m *AccountStore) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}
