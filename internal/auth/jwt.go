package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/yasinhessnawi1/hideme-auth/internal/config"
	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils"
)

// JWT errors
var (
	ErrInvalidSigningMethod = errors.New("invalid signing method")
	ErrMissingSecret        = errors.New("jwt secret is not configured")
)

// TokenTimePrecision is the resolution of the iat, nbf and exp claims.
// Password change stamps are truncated to it so they compare against iat.
const TokenTimePrecision = time.Millisecond

func init() {
	jwt.TimePrecision = TokenTimePrecision
}

// Claims represents the claims in a session token
type Claims struct {
	AccountID int64 `json:"account_id"`
	jwt.RegisteredClaims
}

// IssuedAtTime returns the iat claim, or the zero time when absent.
// The claim is parsed through a float, which can land a few hundred
// nanoseconds below the issued millisecond, so it is rounded back.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time.Round(TokenTimePrecision)
}

// JWTService signs and validates HS256 session tokens
type JWTService struct {
	config *config.JWTSettings
	now    func() time.Time
}

// NewJWTService creates a new JWTService instance
func NewJWTService(cfg *config.JWTSettings) *JWTService {
	return &JWTService{
		config: cfg,
		now:    time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	return s
}

func (s *JWTService) expiry() time.Duration {
	if s.config.Expiry > 0 {
		return s.config.Expiry
	}
	return constants.DefaultJWTExpiry
}

func (s *JWTService) issuer() string {
	if s.config.Issuer != "" {
		return s.config.Issuer
	}
	return constants.DefaultJWTIssuer
}

// Issue mints a session token for the account and returns it with its expiry
func (s *JWTService) Issue(accountID int64) (string, time.Time, error) {
	if s.config == nil || s.config.Secret == "" {
		return "", time.Time{}, ErrMissingSecret
	}

	now := s.now()
	expiresAt := now.Add(s.expiry())

	claims := Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer(),
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate checks the signature, expiry and issuer of a session token.
// Every failure is reported as an invalid token error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	if s.config == nil || s.config.Secret == "" {
		return nil, utils.NewInvalidTokenError()
	}

	// Time based claims are checked below against the service clock
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, utils.NewInvalidTokenError()
	}

	now := s.now()
	switch {
	case !claims.VerifyExpiresAt(now, true):
		return nil, utils.NewInvalidTokenError()
	case !claims.VerifyNotBefore(now, false):
		return nil, utils.NewInvalidTokenError()
	case !claims.VerifyIssuer(s.issuer(), true):
		return nil, utils.NewInvalidTokenError()
	case claims.AccountID <= 0 || claims.IssuedAt == nil:
		return nil, utils.NewInvalidTokenError()
	}

	return claims, nil
}
