// Package constants provides shared constant values used throughout the application.
//
// The errorcodes.go file defines constants related to error handling, categorization,
// and messaging. User-facing messages are deliberately uniform where distinguishing
// between failure causes would let a caller probe which accounts exist.
package constants

// Error Types define the categories of errors that can occur in the application.
// These are used for internal error classification and handling.
const (
	// ErrorNotFound indicates that a requested resource could not be found.
	ErrorNotFound = "resource not found"

	// ErrorUnauthorized indicates that authentication is required but was not provided.
	ErrorUnauthorized = "unauthorized access"

	// ErrorBadRequest indicates that the request was malformed or invalid.
	ErrorBadRequest = "invalid request"

	// ErrorInternalServer indicates an unexpected internal error.
	ErrorInternalServer = "internal server error"

	// ErrorValidation indicates that input validation failed.
	ErrorValidation = "validation error"

	// ErrorDuplicate indicates an attempt to create a resource that already exists.
	ErrorDuplicate = "duplicate resource"

	// ErrorInvalidCredentials indicates that authentication credentials are incorrect.
	ErrorInvalidCredentials = "invalid credentials"

	// ErrorInvalidToken indicates that a session token is malformed, forged or expired.
	ErrorInvalidToken = "invalid token"

	// ErrorAccountGone indicates that a session token names an account that no longer exists.
	ErrorAccountGone = "account no longer exists"

	// ErrorPasswordChanged indicates that the password changed after the session token was issued.
	ErrorPasswordChanged = "password changed after token issue"

	// ErrorInvalidResetToken indicates that a password reset token is unknown or past its expiry.
	ErrorInvalidResetToken = "invalid or expired reset token"

	// ErrorDelivery indicates that the reset mail could not be handed to the mail transport.
	ErrorDelivery = "mail delivery failed"

	// ErrorRateLimited indicates the client exceeded its request budget.
	ErrorRateLimited = "rate limit exceeded"
)

// User-Facing Error Messages define standardized messages that can be safely presented to users.
const (
	// MsgBadCredentials is returned for every login failure regardless of cause.
	MsgBadCredentials = "Incorrect email or password"

	// MsgNotLoggedIn is returned when a protected route is called without a usable session.
	MsgNotLoggedIn = "You are not logged in! Please log in to get access."

	// MsgInvalidToken is returned for malformed, forged or expired session tokens.
	MsgInvalidToken = "Invalid token. Please log in again!"

	// MsgAccountGone is returned when the account behind a session no longer exists.
	MsgAccountGone = "The user belonging to this token no longer exists."

	// MsgPasswordChangedRelogin is returned when the password changed after the session was issued.
	MsgPasswordChangedRelogin = "User recently changed password! Please log in again."

	// MsgNoAccountForEmail is returned by forgot-password when no account matches the address.
	MsgNoAccountForEmail = "There is no user with that email address."

	// MsgResetTokenInvalid is returned when a reset token is unknown or has expired.
	MsgResetTokenInvalid = "Token is invalid or has expired"

	// MsgResetTokenSent confirms that a reset mail was handed to the mail transport.
	MsgResetTokenSent = "Token sent to email!"

	// MsgDeliveryFailed is returned when the reset mail could not be sent.
	MsgDeliveryFailed = "There was an error sending the email. Try again later!"

	// MsgCurrentPasswordWrong is returned by update-password when the current password does not verify.
	MsgCurrentPasswordWrong = "Your current password is wrong."

	// MsgPasswordsDoNotMatch indicates that the password and its confirmation differ.
	MsgPasswordsDoNotMatch = "Passwords are not the same!"

	// MsgEmailTaken indicates the signup address already belongs to an account.
	MsgEmailTaken = "An account with this email already exists"

	// MsgInternalServerError provides a generic server error message.
	MsgInternalServerError = "Something went very wrong!"

	// MsgRequestBodyTooLarge indicates that the request payload exceeds size limits.
	MsgRequestBodyTooLarge = "Request body too large"

	// MsgEmptyRequestBody indicates that a request body was expected but not provided.
	MsgEmptyRequestBody = "Request body must not be empty"

	// MsgMalformedJSON indicates that the request body contains invalid JSON.
	MsgMalformedJSON = "Request body contains malformed JSON"

	// MsgResourceNotFound indicates that the requested resource does not exist.
	MsgResourceNotFound = "The requested resource could not be found"

	// MsgMethodNotAllowed indicates that the HTTP method is not supported for the endpoint.
	MsgMethodNotAllowed = "This method is not allowed for this resource"

	// MsgTooManyRequests is returned when a client exceeds the rate limit.
	MsgTooManyRequests = "Too many requests from this IP, please try again later."

	// MsgValidationFailed is the top-level message for field validation failures.
	MsgValidationFailed = "Invalid input data"
)

// Database Error Types define constants for recognizing driver errors by message.
const (
	// DBErrorDuplicateKey is the PostgreSQL error message for unique constraint violations.
	DBErrorDuplicateKey = "duplicate key value violates unique constraint"

	// MySQLDuplicateEntry is the MySQL error message fragment for unique key violations.
	MySQLDuplicateEntry = "Duplicate entry"
)

// Logger Constants define values used for structured logging.
const (
	// LogCategoryAuth is the log category for authentication-related events.
	LogCategoryAuth = "auth"

	// LogEventSignup is the log event type for account creation.
	LogEventSignup = "signup"

	// LogEventLogin is the log event type for login.
	LogEventLogin = "login"

	// LogEventLogout is the log event type for logout.
	LogEventLogout = "logout"

	// LogEventForgotPassword is the log event type for reset token issuance.
	LogEventForgotPassword = "forgot_password"

	// LogEventResetPassword is the log event type for token-based password reset.
	LogEventResetPassword = "reset_password"

	// LogEventUpdatePassword is the log event type for authenticated password change.
	LogEventUpdatePassword = "update_password"

	// LogEventSession is the log event type for session verification.
	LogEventSession = "session"

	// LogRedactedValue is used to replace sensitive values in logs.
	LogRedactedValue = "[REDACTED]"
)
