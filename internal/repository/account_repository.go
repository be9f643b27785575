package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
	"github.com/yasinhessnawi1/hideme-auth/internal/database"
	"github.com/yasinhessnawi1/hideme-auth/internal/models"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils"
)

// AccountRepository defines methods for interacting with account data
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, account *models.Account, opts ...SaveOption) error
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error)
	ConsumeResetToken(ctx context.Context, account *models.Account, tokenHash string, now time.Time) error
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// SaveOptions collects the options accepted by Save
type SaveOptions struct {
	// SkipValidation persists the account without validating it first
	SkipValidation bool

	// Fields limits the update to these columns. Empty means every mutable column.
	Fields []string

	// ResetToken, when set, makes the update match only while this digest is stored
	ResetToken *string
}

// SaveOption tunes a single Save call
type SaveOption func(*SaveOptions)

// SkipValidation persists the account without validating it first. Used when
// only the reset fields change.
func SkipValidation() SaveOption {
	return func(o *SaveOptions) {
		o.SkipValidation = true
	}
}

// OnlyFields limits Save to the given columns. updated_at is always written.
func OnlyFields(columns ...string) SaveOption {
	return func(o *SaveOptions) {
		o.Fields = append(o.Fields, columns...)
	}
}

// IfResetToken makes Save conditional on the stored reset digest. When the
// digest was replaced or consumed in the meantime nothing is written and Save
// returns a not found error.
func IfResetToken(digest string) SaveOption {
	return func(o *SaveOptions) {
		o.ResetToken = &digest
	}
}

// NewSaveOptions applies opts in order
func NewSaveOptions(opts ...SaveOption) SaveOptions {
	options := SaveOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// mutableColumns are the columns Save writes when no field list is given
var mutableColumns = []string{
	constants.ColumnEmail,
	constants.ColumnPasswordHash,
	constants.ColumnSalt,
	constants.ColumnPasswordChangedAt,
	constants.ColumnPasswordResetToken,
	constants.ColumnPasswordResetExpires,
}

// Columns returns the columns selected by the options
func (o SaveOptions) Columns() []string {
	if len(o.Fields) == 0 {
		return mutableColumns
	}
	return o.Fields
}

// columnValue returns the value Save writes for column
func columnValue(account *models.Account, column string) (interface{}, error) {
	switch column {
	case constants.ColumnEmail:
		return account.Email, nil
	case constants.ColumnPasswordHash:
		return account.PasswordHash, nil
	case constants.ColumnSalt:
		return account.Salt, nil
	case constants.ColumnPasswordChangedAt:
		return nullableTime(account.PasswordChangedAt), nil
	case constants.ColumnPasswordResetToken:
		return nullableString(account.PasswordResetToken), nil
	case constants.ColumnPasswordResetExpires:
		return nullableTime(account.PasswordResetExpires), nil
	default:
		return nil, fmt.Errorf("column %q cannot be saved", column)
	}
}

// SQLAccountRepository is a database/sql implementation of AccountRepository
// that works against PostgreSQL and MySQL.
type SQLAccountRepository struct {
	db *database.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *database.Pool) AccountRepository {
	return &SQLAccountRepository{
		db: db,
	}
}

var accountColumns = strings.Join([]string{
	constants.ColumnAccountID,
	constants.ColumnEmail,
	constants.ColumnPasswordHash,
	constants.ColumnSalt,
	constants.ColumnPasswordChangedAt,
	constants.ColumnPasswordResetToken,
	constants.ColumnPasswordResetExpires,
	constants.ColumnCreatedAt,
	constants.ColumnUpdatedAt,
}, ", ")

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	account := &models.Account{}
	var (
		changedAt  sql.NullTime
		resetToken sql.NullString
		resetExp   sql.NullTime
	)

	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Salt,
		&changedAt,
		&resetToken,
		&resetExp,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if changedAt.Valid {
		t := changedAt.Time
		account.PasswordChangedAt = &t
	}
	if resetToken.Valid {
		account.PasswordResetToken = resetToken.String
	}
	if resetExp.Valid {
		t := resetExp.Time
		account.PasswordResetExpires = &t
	}

	return account, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// Create adds a new account to the database
func (r *SQLAccountRepository) Create(ctx context.Context, account *models.Account) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	startTime := time.Now()

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	args := []interface{}{
		account.Email,
		account.PasswordHash,
		account.Salt,
		nullableTime(account.PasswordChangedAt),
		account.CreatedAt,
		account.UpdatedAt,
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (%s, %s, %s, %s, %s, %s)
        VALUES (?, ?, ?, ?, ?, ?)`,
		constants.TableAccounts,
		constants.ColumnEmail,
		constants.ColumnPasswordHash,
		constants.ColumnSalt,
		constants.ColumnPasswordChangedAt,
		constants.ColumnCreatedAt,
		constants.ColumnUpdatedAt,
	)

	var err error
	if r.db.IsPostgres() {
		// PostgreSQL hands the id back through RETURNING
		query = r.db.Rebind(query + " RETURNING " + constants.ColumnAccountID)
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&account.ID)
	} else {
		var result sql.Result
		result, err = r.db.ExecContext(ctx, query, args...)
		if err == nil {
			account.ID, err = result.LastInsertId()
		}
	}

	utils.LogDBQuery(query, args, time.Since(startTime), err)

	if err != nil {
		if utils.IsUniqueViolation(err) {
			return utils.NewDuplicateError("Account", constants.ColumnEmail, account.Email)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	log.Info().
		Int64("account_id", account.ID).
		Str("email", utils.MaskEmail(account.Email)).
		Msg("Account created")

	return nil
}

// GetByID retrieves an account by ID
func (r *SQLAccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	startTime := time.Now()

	query := r.db.Rebind(fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ?",
		accountColumns, constants.TableAccounts, constants.ColumnAccountID,
	))

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))

	utils.LogDBQuery(query, []interface{}{id}, time.Since(startTime), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("Account", id)
		}
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}

	return account, nil
}

// GetByEmail retrieves an account by email, compared case-insensitively
func (r *SQLAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	startTime := time.Now()

	query := r.db.Rebind(fmt.Sprintf(
		"SELECT %s FROM %s WHERE LOWER(%s) = LOWER(?)",
		accountColumns, constants.TableAccounts, constants.ColumnEmail,
	))

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, email))

	utils.LogDBQuery(query, []interface{}{email}, time.Since(startTime), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("Account", utils.MaskEmail(email))
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return account, nil
}

// ExistsByEmail checks if an email is already registered
func (r *SQLAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	startTime := time.Now()

	query := r.db.Rebind(fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE LOWER(%s) = LOWER(?)",
		constants.TableAccounts, constants.ColumnEmail,
	))

	var count int
	err := r.db.QueryRowContext(ctx, query, email).Scan(&count)

	utils.LogDBQuery(query, []interface{}{utils.MaskEmail(email)}, time.Since(startTime), err)

	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return count > 0, nil
}

// Save writes the account's mutable fields back to the store, or only the
// ones named with OnlyFields. The account is validated first unless
// SkipValidation is passed.
func (r *SQLAccountRepository) Save(ctx context.Context, account *models.Account, opts ...SaveOption) error {
	options := NewSaveOptions(opts...)

	if !options.SkipValidation {
		if err := utils.ValidateStruct(account); err != nil {
			return err
		}
		if account.PasswordHash == "" || account.Salt == "" {
			return utils.NewValidationError("password", "Password is required")
		}
	}

	columns := options.Columns()
	assignments := make([]string, 0, len(columns)+1)
	args := make([]interface{}, 0, len(columns)+3)
	for _, column := range columns {
		value, err := columnValue(account, column)
		if err != nil {
			return err
		}
		assignments = append(assignments, column+" = ?")
		args = append(args, value)
	}

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	startTime := time.Now()
	account.UpdatedAt = time.Now().UTC()

	assignments = append(assignments, constants.ColumnUpdatedAt+" = ?")
	args = append(args, account.UpdatedAt, account.ID)

	where := constants.ColumnAccountID + " = ?"
	if options.ResetToken != nil {
		where += " AND " + constants.ColumnPasswordResetToken + " = ?"
		args = append(args, *options.ResetToken)
	}

	query := r.db.Rebind(fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s",
		constants.TableAccounts, strings.Join(assignments, ", "), where,
	))

	result, err := r.db.ExecContext(ctx, query, args...)

	utils.LogDBQuery(query, args, time.Since(startTime), err)

	if err != nil {
		if utils.IsUniqueViolation(err) {
			return utils.NewDuplicateError("Account", constants.ColumnEmail, account.Email)
		}
		return fmt.Errorf("failed to save account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if options.ResetToken != nil {
			return utils.NewNotFoundError("Reset token", constants.LogRedactedValue)
		}
		return utils.NewNotFoundError("Account", account.ID)
	}

	return nil
}

// GetByResetToken retrieves the account holding the given reset digest whose
// expiry is still after now.
func (r *SQLAccountRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	now = now.UTC()

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	startTime := time.Now()

	query := r.db.Rebind(fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ? AND %s > ?",
		accountColumns,
		constants.TableAccounts,
		constants.ColumnPasswordResetToken,
		constants.ColumnPasswordResetExpires,
	))

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, tokenHash, now))

	utils.LogDBQuery(query, []interface{}{tokenHash, now}, time.Since(startTime), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("Reset token", constants.LogRedactedValue)
		}
		return nil, fmt.Errorf("failed to get account by reset token: %w", err)
	}

	return account, nil
}

// ConsumeResetToken stores the account's new credentials and clears its reset
// fields in one conditional update. The update only matches while the digest
// is still present and unexpired, so of two concurrent confirmations exactly
// one succeeds; the other gets an invalid or expired token error.
func (r *SQLAccountRepository) ConsumeResetToken(ctx context.Context, account *models.Account, tokenHash string, now time.Time) error {
	now = now.UTC()

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	startTime := time.Now()
	account.UpdatedAt = now

	query := r.db.Rebind(fmt.Sprintf(`
        UPDATE %s
        SET %s = ?, %s = ?, %s = ?, %s = NULL, %s = NULL, %s = ?
        WHERE %s = ? AND %s = ? AND %s > ?`,
		constants.TableAccounts,
		constants.ColumnPasswordHash,
		constants.ColumnSalt,
		constants.ColumnPasswordChangedAt,
		constants.ColumnPasswordResetToken,
		constants.ColumnPasswordResetExpires,
		constants.ColumnUpdatedAt,
		constants.ColumnAccountID,
		constants.ColumnPasswordResetToken,
		constants.ColumnPasswordResetExpires,
	))

	args := []interface{}{
		account.PasswordHash,
		account.Salt,
		nullableTime(account.PasswordChangedAt),
		account.UpdatedAt,
		account.ID,
		tokenHash,
		now,
	}

	result, err := r.db.ExecContext(ctx, query, args...)

	utils.LogDBQuery(query, args, time.Since(startTime), err)

	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return utils.NewInvalidOrExpiredTokenError()
	}

	account.ClearReset()
	return nil
}

// ClearExpiredResetTokens nulls reset fields whose expiry has passed. Lookups
// already ignore expired tokens; this only keeps the table tidy.
func (r *SQLAccountRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	startTime := time.Now()

	query := r.db.Rebind(fmt.Sprintf(
		"UPDATE %s SET %s = NULL, %s = NULL WHERE %s IS NOT NULL AND %s <= ?",
		constants.TableAccounts,
		constants.ColumnPasswordResetToken,
		constants.ColumnPasswordResetExpires,
		constants.ColumnPasswordResetExpires,
		constants.ColumnPasswordResetExpires,
	))

	result, err := r.db.ExecContext(ctx, query, now)

	utils.LogDBQuery(query, []interface{}{now}, time.Since(startTime), err)

	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		log.Info().Int64("count", rowsAffected).Msg("Cleared expired password reset tokens")
	}

	return rowsAffected, nil
}
