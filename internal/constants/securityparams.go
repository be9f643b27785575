package constants

// Context Key Names
const (
	AccountContextKey   = "account"
	AccountIDContextKey = "account_id"
	RequestIDContextKey = "request_id"
)

// Password Validation
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxEmailLength    = 255
)

// Cookie Names
const (
	SessionCookie = "jwt"
)

// Session rejection reasons, used as log fields and metric labels.
const (
	RejectNoToken         = "no_token"
	RejectInvalidToken    = "invalid_token"
	RejectAccountGone     = "account_gone"
	RejectPasswordChanged = "password_changed"
)
