package migrations

import (
	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
)

// createAccountsTable creates the accounts table and the lookup index on
// password_reset_token.
func createAccountsTable() Migration {
	return Migration{
		Name:        "create_accounts_table",
		Description: "Creates the accounts table",
		TableName:   constants.TableAccounts,
		Statements: func(driver string) []string {
			if driver == constants.DriverMySQL {
				return []string{`
					CREATE TABLE IF NOT EXISTS accounts (
						account_id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
						email VARCHAR(255) NOT NULL,
						password_hash VARCHAR(255) NOT NULL,
						salt VARCHAR(255) NOT NULL,
						password_changed_at DATETIME(6) NULL,
						password_reset_token CHAR(64) NULL,
						password_reset_expires DATETIME(6) NULL,
						created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
						updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
						CONSTRAINT idx_accounts_email UNIQUE (email),
						INDEX idx_accounts_reset_token (password_reset_token)
					) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
				`}
			}

			return []string{
				`
					CREATE TABLE IF NOT EXISTS accounts (
						account_id BIGSERIAL PRIMARY KEY,
						email VARCHAR(255) NOT NULL,
						password_hash VARCHAR(255) NOT NULL,
						salt VARCHAR(255) NOT NULL,
						password_changed_at TIMESTAMPTZ NULL,
						password_reset_token CHAR(64) NULL,
						password_reset_expires TIMESTAMPTZ NULL,
						created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
						CONSTRAINT idx_accounts_email UNIQUE (email)
					)
				`,
				`CREATE INDEX IF NOT EXISTS idx_accounts_reset_token ON accounts(password_reset_token)`,
			}
		},
	}
}
