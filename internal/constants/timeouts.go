package constants

import "time"

// Server Timeouts
const (
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
)

// Database Timeouts
const (
	DBConnectionTimeout   = 30 * time.Second
	DBQueryTimeout        = 15 * time.Second
	DBHealthCheckTimeout  = 5 * time.Second
	DBConnMaxLifetime     = 1 * time.Hour
	DBConnMaxIdleTime     = 30 * time.Minute
	DBMaintenanceInterval = 1 * time.Hour

	// MaintenanceTaskTimeout bounds a single maintenance pass.
	MaintenanceTaskTimeout = 5 * time.Minute
)

// Authentication Timeouts
const (
	DefaultJWTExpiry      = 90 * 24 * time.Hour
	DefaultCookieExpiry   = 90 * 24 * time.Hour
	DefaultResetTokenTTL  = 10 * time.Minute
	DefaultMailTimeout    = 10 * time.Second
)

// Rate limiter housekeeping
const (
	RateLimitCleanupInterval = 10 * time.Minute
	RateLimitIdleExpiry      = 30 * time.Minute
)
