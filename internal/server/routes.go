package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/hideme-auth/internal/config"
	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
	"github.com/yasinhessnawi1/hideme-auth/internal/metrics"
	"github.com/yasinhessnawi1/hideme-auth/internal/middleware"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils"
)

// apiRateLimitCategory names the limiter bucket shared by every /api route
const apiRateLimitCategory = "api"

// SetupRoutes configures the routes for the application.
//
// The configured routes include:
// - Health check, version and metrics endpoints (unprotected, not rate limited)
// - Account endpoints under /api/v1/users: signup, login, logout and the reset flow
// - Session-protected endpoints: updateMyPassword and me
func (s *Server) SetupRoutes() {
	r := chi.NewRouter()

	// CORS runs first so preflight requests are answered before anything else
	r.Use(corsMiddleware(s.Config.CORS))

	// Base middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if s.Config.Logging.RequestLog {
		r.Use(middleware.RequestLogger())
	}
	r.Use(middleware.Recovery())
	r.Use(middleware.SecurityHeaders(s.Config.Cookie.IsSecure()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.NotFound(w, "Can't find "+r.URL.Path+" on this server!")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.MethodNotAllowed(w)
	})

	// Health check, version and metrics routes (unprotected)
	r.Get(constants.HealthPath, s.handleHealth)
	r.Get(constants.VersionPath, s.handleVersion)
	if s.Config.Metrics.Enabled {
		r.Method(http.MethodGet, s.Config.Metrics.Path, metrics.Handler(s.registry))
	}

	// API routes
	r.Route(constants.APIBasePath, func(r chi.Router) {
		if s.Config.RateLimit.Enabled {
			r.Use(middleware.RateLimit(s.limiter, apiRateLimitCategory))
		}

		r.Route(strings.TrimPrefix(constants.UsersBasePath, constants.APIBasePath), func(r chi.Router) {
			r.Use(chimiddleware.NoCache)

			auth := s.Handlers.AuthHandler

			// Public account endpoints
			r.Post(constants.UserSignupPath, auth.Signup)
			r.Post(constants.UserLoginPath, auth.Login)
			r.Get(constants.UserLogoutPath, auth.Logout)
			r.Post(constants.UserLogoutPath, auth.Logout)
			r.Post(constants.UserForgotPasswordPath, auth.ForgotPassword)
			r.Patch(constants.UserResetPasswordPath, auth.ResetPassword)

			// Session-protected endpoints
			r.Group(func(r chi.Router) {
				r.Use(s.sessions.RequireSession)

				r.Patch(constants.UserUpdatePasswordPath, auth.UpdatePassword)
				r.Get(constants.UserMePath, auth.Me)
			})
		})
	})

	s.router = r
}

// GetRouter returns the configured router.
//
// This method is primarily used for testing and for
// integrating the router with other components.
func (s *Server) GetRouter() chi.Router {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health.HealthCheck(r.Context()); err != nil {
		log.Error().Err(err).Msg("Health check failed")
		utils.Error(w, http.StatusServiceUnavailable, "Service is not healthy", nil)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": s.Config.App.Version,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]string{
		"name":        s.Config.App.Name,
		"version":     s.Config.App.Version,
		"environment": s.Config.App.Environment,
	})
}

// corsMiddleware creates a CORS middleware for the configured origins.
// It handles Cross-Origin Resource Sharing to allow browsers to safely access the API
// from different domains while protecting against unauthorized cross-origin requests.
//
// Parameters:
//   - cfg: Allowed origins and whether credentials are allowed
//
// Returns:
//   - A middleware function that adds CORS headers to responses
//
// The middleware echoes an allowed Origin back, since credentials mode forbids
// a wildcard, and answers OPTIONS preflight requests with 204.
func corsMiddleware(cfg config.CORSSettings) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !originAllowed(cfg.AllowedOrigins, origin) {
				// If origin is not allowed, continue without setting CORS headers
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			// Handle OPTIONS preflight requests
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "300")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func originAllowed(allowedOrigins []string, origin string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
