package auth

import (
	"net/http"
	"time"

	"github.com/yasinhessnawi1/hideme-auth/internal/config"
	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
)

func cookieName(cfg *config.CookieSettings) string {
	if cfg == nil || cfg.Name == "" {
		return constants.SessionCookie
	}
	return cfg.Name
}

func sameSite(secure bool) http.SameSite {
	if secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// NewSessionCookie builds the http-only cookie carrying a session token
func NewSessionCookie(token string, cfg *config.CookieSettings, now time.Time) *http.Cookie {
	expiry := constants.DefaultCookieExpiry
	secure := false
	if cfg != nil {
		if cfg.Expiry > 0 {
			expiry = cfg.Expiry
		}
		secure = cfg.IsSecure()
	}

	return &http.Cookie{
		Name:     cookieName(cfg),
		Value:    token,
		Path:     "/",
		Expires:  now.Add(expiry),
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite(secure),
	}
}

// ExpiredSessionCookie overwrites the session cookie so the browser drops it
func ExpiredSessionCookie(cfg *config.CookieSettings) *http.Cookie {
	secure := cfg != nil && cfg.IsSecure()
	return &http.Cookie{
		Name:     cookieName(cfg),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite(secure),
	}
}
