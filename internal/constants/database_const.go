// Package constants provides shared constant values used throughout the application.
//
// The database_const.go file defines constants related to database structures,
// including table names and column names.
package constants

// Table Names
const (
	// TableAccounts is the name of the table storing account credentials.
	TableAccounts = "accounts"

	// TableMigrations is the name of the table tracking executed schema migrations.
	TableMigrations = "schema_migrations"
)

// Account Columns
const (
	ColumnAccountID            = "account_id"
	ColumnEmail                = "email"
	ColumnPasswordHash         = "password_hash"
	ColumnSalt                 = "salt"
	ColumnPasswordChangedAt    = "password_changed_at"
	ColumnPasswordResetToken   = "password_reset_token"
	ColumnPasswordResetExpires = "password_reset_expires"
	ColumnCreatedAt            = "created_at"
	ColumnUpdatedAt            = "updated_at"
)

// Database Error Codes
const (
	// PGErrorDuplicateConstraint is the PostgreSQL error code for unique constraint violations.
	PGErrorDuplicateConstraint = "23505"

	// PGErrorNotNullConstraint is the PostgreSQL error code for not-null constraint violations.
	PGErrorNotNullConstraint = "23502"

	// MySQLErrorDuplicateEntry is the MySQL error number for duplicate unique keys.
	MySQLErrorDuplicateEntry = 1062
)
