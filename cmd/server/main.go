package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ifuryst/herald/internal/config"
	"github.com/ifuryst/herald/internal/server"
	"github.com/ifuryst/herald/internal/service"
	"github.com/ifuryst/herald/pkg/logger"
)

var (
	configPath string
	envFile    string
	version    = "0.1.0"
	gitCommit  = "unknown"
	buildTime  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "herald",
	Short: "Herald - Scheduled content publication pipeline",
	Long: `Herald publishes due scheduled and authored posts to the posting API,
fans them out to company pages and notifies the engagement service.`,
	RunE: runServer,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP trigger and the optional in-process scheduler",
	RunE:  runServer,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one publication pass and print the summary",
	RunE:  runOnce,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Herald %s\n", version)
		fmt.Printf("Git commit: %s\n", gitCommit)
		fmt.Printf("Build time: %s\n", buildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/server.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.AddCommand(serveCmd, runCmd, migrateCmd, versionCmd)
}

type app struct {
	cfg           *config.Config
	logger        *zap.Logger
	sentryEnabled bool
}

func (a *app) close() {
	if a.sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
	_ = a.logger.Sync()
}

// bootstrap loads the environment and config, then sets up logging and
// error reporting.
func bootstrap() (*app, error) {
	// Missing .env is fine; the environment may already be set
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, logger: appLogger}

	if cfg.Sentry.DSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     version,
			SampleRate:  cfg.Sentry.SampleRate,
		})
		if err != nil {
			appLogger.Warn("Failed to initialize sentry, continuing without it", zap.Error(err))
		} else {
			a.sentryEnabled = true
		}
	}

	return a, nil
}

func runServer(*cobra.Command, []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("Starting Herald server", zap.String("version", version))

	// Create server
	srv, err := server.NewServer(a.cfg, a.logger, a.sentryEnabled)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Start server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Server failed to start", zap.Error(err))
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		a.logger.Info("Shutting down server...")
	case <-ctx.Done():
		a.logger.Info("Server context cancelled")
	}

	// Graceful shutdown
	if err := srv.Shutdown(context.Background()); err != nil {
		a.logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	a.logger.Info("Server exited")
	return nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	db, err := service.NewDatabase(&a.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	monitoringService := service.NewMonitoringService(db, a.logger.Named("monitoring"), a.sentryEnabled)
	publishingService := service.NewPublishingService(a.cfg, db, a.logger, monitoringService)

	summary := publishingService.Run(cmd.Context(), "cli")

	// The process exits right after; let engagement triggers finish first.
	waitCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Engagement.TimeoutDuration())
	defer cancel()
	_ = publishingService.Shutdown(waitCtx)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func runMigrate(*cobra.Command, []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	// Migrate regardless of database.auto_migrate
	a.cfg.Database.AutoMigrate = false
	db, err := service.NewDatabase(&a.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := service.Migrate(db); err != nil {
		return err
	}

	a.logger.Info("Database schema is up to date")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
