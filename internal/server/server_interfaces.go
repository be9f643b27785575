// Package server provides HTTP server implementation for the HideMe auth service.
// This file defines interfaces that abstract the server's dependencies for testing.
package server

import (
	"context"
)

// ServerDBHealthChecker defines the interface for database health checks.
// *database.Pool satisfies it; tests pass a stub.
type ServerDBHealthChecker interface {
	// HealthCheck verifies the database connection is working properly
	//
	// Parameters:
	//   - ctx: Context for the health check operation
	//
	// Returns:
	//   - An error if the database is unreachable or unhealthy
	HealthCheck(ctx context.Context) error

	// Close terminates the database connection
	Close()
}

// ResetTokenSweeper clears reset tokens whose expiry has passed.
// It is driven by the maintenance ticker.
type ResetTokenSweeper interface {
	ClearExpiredTokens(ctx context.Context) (int64, error)
}
