package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
)

// Error kinds. Services return these wrapped in an AppError; the HTTP
// boundary translates them once through ParseError.
var (
	ErrNotFound              = errors.New(constants.ErrorNotFound)
	ErrBadRequest            = errors.New(constants.ErrorBadRequest)
	ErrInternalServer        = errors.New(constants.ErrorInternalServer)
	ErrValidation            = errors.New(constants.ErrorValidation)
	ErrBadCredentials        = errors.New(constants.ErrorInvalidCredentials)
	ErrUnauthenticated       = errors.New(constants.ErrorUnauthorized)
	ErrInvalidToken          = errors.New(constants.ErrorInvalidToken)
	ErrAccountGone           = errors.New(constants.ErrorAccountGone)
	ErrPasswordChanged       = errors.New(constants.ErrorPasswordChanged)
	ErrInvalidOrExpiredToken = errors.New(constants.ErrorInvalidResetToken)
	ErrDelivery              = errors.New(constants.ErrorDelivery)
	ErrRateLimited           = errors.New(constants.ErrorRateLimited)

	// ErrDuplicate is a validation failure: a unique value is already taken.
	ErrDuplicate = fmt.Errorf("%s: %w", constants.ErrorDuplicate, ErrValidation)
)

// AppError represents an application error with additional context
type AppError struct {
	Err        error             // The underlying error kind
	StatusCode int               // HTTP status code
	Message    string            // User-friendly error message
	DevInfo    string            // Additional information for developers, never sent to clients
	Field      string            // Field related to the error (for validation errors)
	Details    map[string]string // Per-field messages for validation errors
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the given error and status code
func New(err error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        err,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewValidationError creates a new validation error for a specific field
func NewValidationError(field, message string) *AppError {
	appErr := &AppError{
		Err:        ErrValidation,
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Field:      field,
	}
	if field != "" {
		appErr.Details = map[string]string{field: message}
	}
	return appErr
}

// NewValidationErrors creates a validation error carrying one message per field
func NewValidationErrors(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		StatusCode: http.StatusBadRequest,
		Message:    constants.MsgValidationFailed,
		Details:    details,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		StatusCode: http.StatusBadRequest,
		Message:    message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resourceType string, identifier interface{}) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("%s with identifier '%v' not found", resourceType, identifier),
	}
}

// NewInternalServerError creates a new internal server error
func NewInternalServerError(err error) *AppError {
	devInfo := ""
	if err != nil {
		devInfo = err.Error()
	}
	return &AppError{
		Err:        ErrInternalServer,
		StatusCode: http.StatusInternalServerError,
		Message:    constants.MsgInternalServerError,
		DevInfo:    devInfo,
	}
}

// NewDuplicateError creates a new duplicate resource error
func NewDuplicateError(resourceType, field string, value interface{}) *AppError {
	message := constants.MsgEmailTaken
	if field != constants.ColumnEmail {
		message = fmt.Sprintf("%s with this %s already exists", resourceType, field)
	}
	return &AppError{
		Err:        ErrDuplicate,
		StatusCode: http.StatusBadRequest,
		Message:    message,
		DevInfo:    fmt.Sprintf("%s %s=%v", resourceType, field, value),
		Field:      field,
		Details:    map[string]string{field: message},
	}
}

// NewBadCredentialsError is returned for every login or current-password failure.
func NewBadCredentialsError() *AppError {
	return &AppError{
		Err:        ErrBadCredentials,
		StatusCode: http.StatusUnauthorized,
		Message:    constants.MsgBadCredentials,
	}
}

// newSessionError builds one of the four session rejections. They share
// status and message so a caller cannot tell which check failed.
func newSessionError(kind error) *AppError {
	return &AppError{
		Err:        kind,
		StatusCode: http.StatusUnauthorized,
		Message:    constants.MsgNotLoggedIn,
	}
}

// NewUnauthenticatedError reports a request that carried no session token.
func NewUnauthenticatedError() *AppError { return newSessionError(ErrUnauthenticated) }

// NewInvalidTokenError reports a malformed, forged or expired session token.
func NewInvalidTokenError() *AppError { return newSessionError(ErrInvalidToken) }

// NewAccountGoneError reports a session token whose account was deleted.
func NewAccountGoneError() *AppError { return newSessionError(ErrAccountGone) }

// NewPasswordChangedError reports a session token minted before the last password change.
func NewPasswordChangedError() *AppError { return newSessionError(ErrPasswordChanged) }

// NewInvalidOrExpiredTokenError reports an unknown, used or expired reset token.
func NewInvalidOrExpiredTokenError() *AppError {
	return &AppError{
		Err:        ErrInvalidOrExpiredToken,
		StatusCode: http.StatusBadRequest,
		Message:    constants.MsgResetTokenInvalid,
	}
}

// NewDeliveryError reports that the reset mail could not be sent.
func NewDeliveryError(err error) *AppError {
	devInfo := ""
	if err != nil {
		devInfo = err.Error()
	}
	return &AppError{
		Err:        ErrDelivery,
		StatusCode: http.StatusInternalServerError,
		Message:    constants.MsgDeliveryFailed,
		DevInfo:    devInfo,
	}
}

// NewRateLimitError reports a client that exceeded its request budget.
func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		StatusCode: http.StatusTooManyRequests,
		Message:    constants.MsgTooManyRequests,
	}
}

// ParseError attempts to parse various types of errors into an AppError
func ParseError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return New(ErrNotFound, http.StatusNotFound, constants.MsgResourceNotFound)
	case errors.Is(err, ErrBadRequest):
		return NewBadRequestError(err.Error())
	case errors.Is(err, ErrDuplicate):
		return NewDuplicateError("Account", constants.ColumnEmail, "")
	case errors.Is(err, ErrValidation):
		return NewValidationError("", err.Error())
	case errors.Is(err, ErrBadCredentials):
		return NewBadCredentialsError()
	case errors.Is(err, ErrUnauthenticated):
		return NewUnauthenticatedError()
	case errors.Is(err, ErrInvalidToken):
		return NewInvalidTokenError()
	case errors.Is(err, ErrAccountGone):
		return NewAccountGoneError()
	case errors.Is(err, ErrPasswordChanged):
		return NewPasswordChangedError()
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return NewInvalidOrExpiredTokenError()
	case errors.Is(err, ErrDelivery):
		return NewDeliveryError(err)
	case errors.Is(err, ErrRateLimited):
		return NewRateLimitError()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewInternalServerError(err)
	}

	if IsUniqueViolation(err) {
		return &AppError{
			Err:        ErrDuplicate,
			StatusCode: http.StatusBadRequest,
			Message:    constants.MsgEmailTaken,
			DevInfo:    err.Error(),
			Field:      constants.ColumnEmail,
			Details:    map[string]string{constants.ColumnEmail: constants.MsgEmailTaken},
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == constants.PGErrorNotNullConstraint {
		field := pqErr.Column
		return &AppError{
			Err:        ErrValidation,
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("The %s field cannot be empty", field),
			DevInfo:    pqErr.Error(),
			Field:      field,
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "no rows") {
		return &AppError{
			Err:        ErrNotFound,
			StatusCode: http.StatusNotFound,
			Message:    constants.MsgResourceNotFound,
			DevInfo:    err.Error(),
		}
	}

	return NewInternalServerError(err)
}

// IsUniqueViolation reports whether err is a unique key violation from
// either supported driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == constants.PGErrorDuplicateConstraint
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == constants.MySQLErrorDuplicateEntry
	}

	msg := err.Error()
	return strings.Contains(msg, constants.DBErrorDuplicateKey) ||
		strings.Contains(msg, constants.MySQLDuplicateEntry)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode == http.StatusNotFound
	}
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if an error is a duplicate resource error
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsSessionError reports whether err is one of the four session rejections
func IsSessionError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrAccountGone) ||
		errors.Is(err, ErrPasswordChanged)
}

// StatusCode returns the HTTP status code for an error
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
