// Package constants provides shared constant values used throughout the application.
//
// The defaults.go file defines default values and limits used throughout the application.
// These constants provide sensible defaults for configuration settings and establish
// security parameters for password hashing and session cookies.
package constants

// Default Configuration Values define fallback settings when not specified in configuration.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultDBDriver is the database driver used when none is configured.
	DefaultDBDriver = DriverPostgres

	// DefaultDBMaxConnections is the default maximum number of database connections.
	DefaultDBMaxConnections = 20

	// DefaultDBMinConnections is the default minimum number of database connections.
	DefaultDBMinConnections = 5

	// DefaultLogLevel is the default logging verbosity level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default logging output format.
	DefaultLogFormat = "json"

	// DefaultAppName is reported in logs and the version endpoint.
	DefaultAppName = "hideme-auth"
)

// Environment Types define the recognized application running environments.
const (
	// EnvDevelopment identifies a development environment with debugging features enabled.
	EnvDevelopment = "development"

	// EnvTesting identifies a testing environment for automated tests.
	EnvTesting = "testing"

	// EnvProduction identifies a production environment with optimized settings.
	EnvProduction = "production"
)

// Database Drivers name the database/sql drivers the store can run on.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Mail Transports name the supported reset-mail delivery mechanisms.
const (
	// MailTransportSendGrid delivers through the SendGrid v3 API.
	MailTransportSendGrid = "sendgrid"

	// MailTransportLog writes the message to the application log instead of sending it.
	MailTransportLog = "log"
)

// Request limits.
const (
	// MaxRequestBodySize is the maximum size in bytes for HTTP request bodies.
	MaxRequestBodySize = 1048576 // 1MB in bytes
)

// Default Password Hash Settings define the parameters for password hashing.
const (
	// DefaultPasswordHashMemory is the memory cost parameter for Argon2id hashing.
	DefaultPasswordHashMemory = 64 * 1024

	// DefaultPasswordHashIterations is the number of iterations for Argon2id hashing.
	DefaultPasswordHashIterations = 3

	// DefaultPasswordHashParallelism is the parallelism parameter for Argon2id hashing.
	DefaultPasswordHashParallelism = 2

	// DefaultPasswordHashSaltLength is the length in bytes of the random salt.
	DefaultPasswordHashSaltLength = 16

	// DefaultPasswordHashKeyLength is the length in bytes of the generated hash.
	DefaultPasswordHashKeyLength = 32

	// DevPasswordHashMemory is a reduced memory setting for development environments.
	DevPasswordHashMemory = 16 * 1024

	// DevPasswordHashIterations is a reduced iteration count for development environments.
	DevPasswordHashIterations = 1
)

// Session and reset token constants.
const (
	// DefaultJWTIssuer is the issuer claim value for session tokens.
	DefaultJWTIssuer = "hideme-auth"

	// BearerTokenPrefix is the prefix for Authorization header bearer tokens.
	BearerTokenPrefix = "Bearer "

	// ResetTokenBytes is the number of random bytes in a password reset secret.
	ResetTokenBytes = 32

	// DefaultMailFromAddress is the sender address for reset mails.
	DefaultMailFromAddress = "support@hidemeai.com"

	// DefaultMailFromName is the sender display name for reset mails.
	DefaultMailFromName = "HideMe Support"

	// ResetMailSubject is the subject line of the password reset mail.
	ResetMailSubject = "Your password reset token (valid for 10 min)"

	// DecoyPassword is hashed once and verified against when a login names
	// an unknown email.
	DecoyPassword = "decoy-password-for-unknown-accounts"
)

// Default rate limit applied to the API routes.
const (
	DefaultRateLimitRPS   = 5.0
	DefaultRateLimitBurst = 20

	// DefaultMetricsPath is where prometheus metrics are exposed.
	DefaultMetricsPath = "/metrics"
)
