// Package server provides HTTP server implementation for the HideMe auth service.
// It handles routing, middleware configuration, and server lifecycle management.
//
// The server follows a structured initialization approach with dependency injection
// and proper lifecycle management. It handles graceful shutdown and the periodic
// sweep of expired password reset tokens.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/hideme-auth/internal/auth"
	"github.com/yasinhessnawi1/hideme-auth/internal/config"
	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
	"github.com/yasinhessnawi1/hideme-auth/internal/database"
	"github.com/yasinhessnawi1/hideme-auth/internal/handlers"
	"github.com/yasinhessnawi1/hideme-auth/internal/metrics"
	"github.com/yasinhessnawi1/hideme-auth/internal/repository"
	"github.com/yasinhessnawi1/hideme-auth/internal/service"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils/ratelimit"
	"github.com/yasinhessnawi1/hideme-auth/migrations"
)

// Handlers contains all HTTP handlers for the application.
type Handlers struct {
	// AuthHandler manages the account and session endpoints
	AuthHandler *handlers.AuthHandler
}

// Dependencies are the external collaborators the server is built on.
// NewServer derives them from the configuration; tests supply their own.
type Dependencies struct {
	// Accounts is the account store
	Accounts repository.AccountRepository

	// Mailer delivers password reset mails
	Mailer service.Mailer

	// Health is checked by /health and closed on shutdown
	Health ServerDBHealthChecker
}

// Server represents the API server for the HideMe auth service.
type Server struct {
	// Config contains application configuration
	Config *config.AppConfig

	// Handlers contains all HTTP request handlers
	Handlers *Handlers

	health     ServerDBHealthChecker
	router     chi.Router
	httpServer *http.Server

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	sessions *auth.SessionMiddleware
	limiter  *ratelimit.Store
	sweeper  ResetTokenSweeper

	maintenanceInterval time.Duration
	maintenanceCancel   context.CancelFunc
	maintenanceDone     chan struct{}
}

// NewServer connects to the configured database, brings its schema up to
// date and builds a server on top of it.
//
// Parameters:
//   - cfg: Application configuration including database, server, and auth settings
//
// Returns:
//   - A fully initialized Server instance ready to start
//   - An error if the database is unreachable or a migration fails
func NewServer(cfg *config.AppConfig) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	if _, err := migrations.NewMigrator(db).RunMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	mailer, err := service.NewMailer(&cfg.Email)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up mailer: %w", err)
	}

	s, err := New(cfg, Dependencies{
		Accounts: repository.NewAccountRepository(db),
		Mailer:   mailer,
		Health:   db,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wires services, handlers and routes on top of deps.
// The order is: metrics → token and password services → business services → handlers → routes.
func New(cfg *config.AppConfig, deps Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if deps.Accounts == nil || deps.Mailer == nil || deps.Health == nil {
		return nil, errors.New("accounts, mailer and health dependencies are required")
	}

	s := &Server{
		Config:              cfg,
		health:              deps.Health,
		maintenanceInterval: constants.DBMaintenanceInterval,
	}

	s.registry = metrics.NewRegistry()
	s.metrics = metrics.NewMetrics(s.registry)

	jwtService := auth.NewJWTService(&cfg.JWT)
	hasher := auth.NewPasswordHasher(auth.ConfigFromAppConfig(cfg))

	accountService := service.NewAccountService(deps.Accounts, hasher, jwtService, s.metrics)
	resetService := service.NewPasswordResetService(deps.Accounts, hasher, jwtService, deps.Mailer, cfg, s.metrics)
	s.sweeper = resetService

	s.sessions = auth.NewSessionMiddleware(jwtService, deps.Accounts, cfg.Cookie.Name, s.metrics)
	s.limiter = ratelimit.NewStore(
		ratelimit.Rate{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		constants.RateLimitCleanupInterval,
		constants.RateLimitIdleExpiry,
	)

	s.Handlers = &Handlers{
		AuthHandler: handlers.NewAuthHandler(accountService, resetService, &cfg.Cookie, s.metrics),
	}

	s.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.ServerAddress(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  constants.DefaultIdleTimeout,
	}

	return s, nil
}

// Start runs the server until SIGINT or SIGTERM is received.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Run(ctx)
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// down gracefully within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		log.Info().
			Str("address", s.httpServer.Addr).
			Msg("Starting server")

		serverErrors <- s.httpServer.ListenAndServe()
	}()

	s.SetupMaintenanceTasks()

	shutdownTimeout := s.Config.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = constants.DefaultShutdownTimeout
	}

	select {
	case err := <-serverErrors:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := s.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("Failed to release resources after server error")
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			// Shutdown the server immediately if graceful shutdown fails
			if closeErr := s.httpServer.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the server. It stops background work,
// waits for in-flight requests and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopMaintenance()
	s.limiter.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	log.Info().Msg("Server stopped gracefully")

	s.health.Close()
	log.Info().Msg("Database connection closed")

	return nil
}

// SetupMaintenanceTasks starts the ticker that clears expired reset tokens.
// Calling it again while the ticker runs has no effect.
func (s *Server) SetupMaintenanceTasks() {
	if s.maintenanceCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.maintenanceCancel = cancel
	s.maintenanceDone = make(chan struct{})

	go s.runMaintenance(ctx, s.maintenanceInterval)
}

func (s *Server) runMaintenance(ctx context.Context, interval time.Duration) {
	defer close(s.maintenanceDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepResetTokens(ctx)
		}
	}
}

// sweepResetTokens runs one maintenance pass
func (s *Server) sweepResetTokens(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, constants.MaintenanceTaskTimeout)
	defer cancel()

	count, err := s.sweeper.ClearExpiredTokens(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to clear expired reset tokens")
		return
	}
	if count > 0 {
		log.Info().Int64("count", count).Msg("Cleared expired reset tokens")
	}
}

func (s *Server) stopMaintenance() {
	if s.maintenanceCancel == nil {
		return
	}
	s.maintenanceCancel()
	<-s.maintenanceDone
	s.maintenanceCancel = nil
}
