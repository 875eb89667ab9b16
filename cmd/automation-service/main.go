package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "leadflow/cmd/automation-service/docs"
	"leadflow/internal/config"
	"leadflow/internal/constants"
	"leadflow/internal/logger"
	"leadflow/pkg/bootstrap"
	"leadflow/pkg/logging"
	"leadflow/pkg/migrations"
)

var (
	configFile string
)

// @title           Leadflow Automation Service API
// @version         1.0
// @description     Leads, automation rules, email templates, campaigns and segments.

// @host      localhost:8080
// @BasePath  /api/v1

// @schemes   http https

func main() {
	rootCmd := &cobra.Command{
		Use:   constants.ServiceName,
		Short: "Marketing automation service",
		Long:  "Automation Service manages leads and runs rule triggered and scheduled campaign automations",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, logger.Logger, error) {
	earlyLog := logging.NewEarlyLog()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
		if configFile == "" {
			earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
			return nil, nil, fmt.Errorf("config file is required")
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return nil, nil, err
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the automation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Automation Service")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.Fatalf("Failed to initialize application: %v", err)
			}

			err = app.Run(ctx)
			if shutdownErr := app.Shutdown(context.Background()); shutdownErr != nil {
				log.ErrorwCtx(ctx, "Shutdown error", "error", shutdownErr)
			}
			if err != nil && err != context.Canceled {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", err)
				return err
			}
			log.InfowCtx(ctx, "Shutdown complete")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	run := func(name string, fn func(ctx context.Context, dc *bootstrap.DatabaseConnector, log logger.Logger) error) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: "Run " + name + " migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := loadConfig()
				if err != nil {
					return err
				}
				defer log.Sync()
				return fn(cmd.Context(), bootstrap.NewDatabaseConnector(cfg, log), log)
			},
		}
	}

	cmd.AddCommand(run("up", func(ctx context.Context, dc *bootstrap.DatabaseConnector, log logger.Logger) error {
		db, err := dc.InitPostgreSQL(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migrations.MigratePostgresUp(db); err != nil {
			return err
		}
		log.InfowCtx(ctx, "Migrations applied")
		return nil
	}))

	cmd.AddCommand(run("down", func(ctx context.Context, dc *bootstrap.DatabaseConnector, log logger.Logger) error {
		db, err := dc.InitPostgreSQL(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migrations.MigratePostgresDown(db); err != nil {
			return err
		}
		log.InfowCtx(ctx, "Migrations rolled back")
		return nil
	}))

	cmd.AddCommand(run("version", func(ctx context.Context, dc *bootstrap.DatabaseConnector, log logger.Logger) error {
		db, err := dc.InitPostgreSQL(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		version, dirty, err := migrations.PostgresVersion(db)
		if err != nil {
			return err
		}
		log.InfowCtx(ctx, "Schema version", "version", version, "dirty", dirty)
		return nil
	}))

	return cmd
}
