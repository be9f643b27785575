package migrations_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
	"github.com/yasinhessnawi1/hideme-auth/internal/database"
	"github.com/yasinhessnawi1/hideme-auth/migrations"
)

// createMockPool creates a pool over a mock database for testing
func createMockPool(t *testing.T, driver string) (*database.Pool, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewPool(db, driver, time.Second), mock
}

func expectBookkeeping(mock sqlmock.Sqlmock, executed ...string) {
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows := sqlmock.NewRows([]string{"name"})
	for _, name := range executed {
		rows.AddRow(name)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM schema_migrations")).WillReturnRows(rows)
}

func TestGetMigrations(t *testing.T) {
	all := migrations.GetMigrations()
	require.Len(t, all, 1)

	assert.Equal(t, "create_accounts_table", all[0].Name)
	assert.Equal(t, constants.TableAccounts, all[0].TableName)
	assert.NotEmpty(t, all[0].Description)
}

func TestAccountsTableDialects(t *testing.T) {
	migration := migrations.GetMigrations()[0]

	postgres := migration.Statements(constants.DriverPostgres)
	require.Len(t, postgres, 2)
	assert.Contains(t, postgres[0], "BIGSERIAL")
	assert.Contains(t, postgres[0], "password_changed_at TIMESTAMPTZ")
	assert.Contains(t, postgres[0], "password_reset_expires TIMESTAMPTZ")
	assert.NotRegexp(t, `TIMESTAMP\s`, postgres[0])
	assert.Contains(t, postgres[1], "idx_accounts_reset_token")

	mysql := migration.Statements(constants.DriverMySQL)
	require.Len(t, mysql, 1)
	assert.Contains(t, mysql[0], "AUTO_INCREMENT")
	assert.Contains(t, mysql[0], "INDEX idx_accounts_reset_token")

	for _, stmts := range [][]string{postgres, mysql} {
		for _, column := range []string{
			constants.ColumnEmail,
			constants.ColumnPasswordHash,
			constants.ColumnSalt,
			constants.ColumnPasswordChangedAt,
			constants.ColumnPasswordResetToken,
			constants.ColumnPasswordResetExpires,
		} {
			assert.Contains(t, stmts[0], column)
		}
	}
}

func TestRunMigrations(t *testing.T) {
	tests := []struct {
		name        string
		driver      string
		setup       func(sqlmock.Sqlmock)
		expectedRun int
		expectError bool
	}{
		{
			name:   "Fresh PostgreSQL database",
			driver: constants.DriverPostgres,
			setup: func(mock sqlmock.Sqlmock) {
				expectBookkeeping(mock)
				mock.ExpectQuery(regexp.QuoteMeta("table_schema = current_schema()")).
					WithArgs(constants.TableAccounts).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS accounts")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_accounts_reset_token")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (name, description) VALUES ($1, $2)")).
					WithArgs("create_accounts_table", "Creates the accounts table").
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			expectedRun: 1,
		},
		{
			name:   "Fresh MySQL database",
			driver: constants.DriverMySQL,
			setup: func(mock sqlmock.Sqlmock) {
				expectBookkeeping(mock)
				mock.ExpectQuery(regexp.QuoteMeta("table_schema = DATABASE()")).
					WithArgs(constants.TableAccounts).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("ENGINE=InnoDB")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (name, description) VALUES (?, ?)")).
					WithArgs("create_accounts_table", "Creates the accounts table").
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			expectedRun: 1,
		},
		{
			name:   "Already executed",
			driver: constants.DriverPostgres,
			setup: func(mock sqlmock.Sqlmock) {
				expectBookkeeping(mock, "create_accounts_table")
			},
			expectedRun: 0,
		},
		{
			name:   "Existing table is recorded without DDL",
			driver: constants.DriverPostgres,
			setup: func(mock sqlmock.Sqlmock) {
				expectBookkeeping(mock)
				mock.ExpectQuery(regexp.QuoteMeta("information_schema.tables")).
					WithArgs(constants.TableAccounts).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations")).
					WithArgs("create_accounts_table", "Creates the accounts table").
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			expectedRun: 0,
		},
		{
			name:   "Statement failure rolls back",
			driver: constants.DriverPostgres,
			setup: func(mock sqlmock.Sqlmock) {
				expectBookkeeping(mock)
				mock.ExpectQuery(regexp.QuoteMeta("information_schema.tables")).
					WithArgs(constants.TableAccounts).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS accounts")).
					WillReturnError(errors.New("permission denied"))
				mock.ExpectRollback()
			},
			expectError: true,
		},
		{
			name:   "Bookkeeping table failure",
			driver: constants.DriverPostgres,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
					WillReturnError(errors.New("connection refused"))
			},
			expectError: true,
		},
		{
			name:   "Existence check failure",
			driver: constants.DriverPostgres,
			setup: func(mock sqlmock.Sqlmock) {
				expectBookkeeping(mock)
				mock.ExpectQuery(regexp.QuoteMeta("information_schema.tables")).
					WillReturnError(errors.New("timeout"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, mock := createMockPool(t, tt.driver)
			tt.setup(mock)

			run, err := migrations.NewMigrator(pool).RunMigrations(context.Background())

			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedRun, run)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStatus(t *testing.T) {
	t.Run("Pending", func(t *testing.T) {
		pool, mock := createMockPool(t, constants.DriverPostgres)
		expectBookkeeping(mock)

		statuses, err := migrations.NewMigrator(pool).Status(context.Background())
		require.NoError(t, err)
		require.Len(t, statuses, 1)
		assert.Equal(t, "create_accounts_table", statuses[0].Name)
		assert.False(t, statuses[0].Applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Applied", func(t *testing.T) {
		pool, mock := createMockPool(t, constants.DriverMySQL)
		expectBookkeeping(mock, "create_accounts_table")

		statuses, err := migrations.NewMigrator(pool).Status(context.Background())
		require.NoError(t, err)
		require.Len(t, statuses, 1)
		assert.True(t, statuses[0].Applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Query failure", func(t *testing.T) {
		pool, mock := createMockPool(t, constants.DriverPostgres)
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM schema_migrations")).
			WillReturnError(errors.New("boom"))

		_, err := migrations.NewMigrator(pool).Status(context.Background())
		assert.Error(t, err)
	})
}
