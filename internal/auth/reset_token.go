package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
)

// GenerateResetToken returns a random reset secret for the user and the
// digest to store in its place.
func GenerateResetToken() (string, string, error) {
	tokenBytes, err := GenerateRandomBytes(constants.ResetTokenBytes)
	if err != nil {
		return "", "", err
	}
	token := hex.EncodeToString(tokenBytes)
	return token, HashResetToken(token), nil
}

// HashResetToken returns the hex sha256 digest of a reset secret
func HashResetToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ResetTokenMatches compares a stored digest with the digest of a presented
// secret in constant time.
func ResetTokenMatches(storedDigest, token string) bool {
	if storedDigest == "" {
		return false
	}
	presented := HashResetToken(token)
	return subtle.ConstantTimeCompare([]byte(storedDigest), []byte(presented)) == 1
}
