// Package utils provides the helpers shared by every layer of the service:
// the error taxonomy, the response envelope, request decoding and validation,
// and structured logging.
package utils

import (
	"strings"
)

// MaskEmail masks the local part of an email address for logging.
// For example: "user@example.com" becomes "u**r@example.com"
func MaskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	user := parts[0]
	domain := parts[1]

	if len(user) <= 2 {
		return email
	}

	return string(user[0]) + strings.Repeat("*", len(user)-2) + string(user[len(user)-1]) + "@" + domain
}
