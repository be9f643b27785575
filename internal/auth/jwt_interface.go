package auth

import "time"

// TokenIssuer mints session tokens
type TokenIssuer interface {
	// Issue returns a signed token for the account and the time it expires
	Issue(accountID int64) (string, time.Time, error)
}

// TokenValidator validates session tokens
type TokenValidator interface {
	// Validate returns the claims of a valid token or an invalid token error
	Validate(tokenString string) (*Claims, error)
}

var (
	_ TokenIssuer    = (*JWTService)(nil)
	_ TokenValidator = (*JWTService)(nil)
)
