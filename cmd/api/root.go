package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yasinhessnawi1/hideme-auth/internal/config"
	"github.com/yasinhessnawi1/hideme-auth/internal/server"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils"
)

const defaultConfigPath = "./configs/config.yaml"

// Global flags available to all subcommands.
var (
	configFile string
	envFiles   []string
)

// NewRootCmd creates the root command of the hideme-auth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hideme-auth",
		Short: "HideMe authentication service",
		Long: `hideme-auth manages user accounts for HideMe: signup, login,
session cookies and the email based password reset flow.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", defaultConfigPath, "config file path")
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, ".env files loaded before the config")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Connect to the database, apply pending migrations and serve the
account API until SIGINT or SIGTERM is received.`,
		RunE: runServe,
	}
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("HideMe auth service\nVersion: %s\nCommit: %s\nBuild Date: %s\n", version, commit, buildDate)
			return nil
		},
	}
}

// loadConfig reads .env files and the config file, then sets up logging
// and request validation.
func loadConfig() (*config.AppConfig, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override version from build if available (not in dev mode)
	if version != "dev" {
		cfg.App.Version = version
	}

	utils.InitLogger(cfg)
	utils.InitValidator()

	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("version", cfg.App.Version).
		Str("environment", cfg.App.Environment).
		Msg("Starting HideMe auth service")

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Blocks until a termination signal arrives
	if err := srv.Start(); err != nil {
		log.Error().Err(err).Msg("Server error")
		return err
	}
	return nil
}
