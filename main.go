package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goabtest/adapters/memory"
	"goabtest/adapters/postgres"
	"goabtest/app"
	"goabtest/internal/api"
	"goabtest/internal/config"
	"goabtest/internal/errors"
	"goabtest/internal/logging"
	"goabtest/internal/metrics"
	"goabtest/internal/migration"
	"goabtest/internal/planning"
	"goabtest/internal/validation"
	"goabtest/ports"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "goabtest",
		Short: "Serve the A/B test planning and analysis API",
		RunE:  runServer,
	}
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to an optional YAML config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initDatabase connects to PostgreSQL and applies migrations
func initDatabase(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to connect to database"))
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func runServer(cmd *cobra.Command, _ []string) error {
	envErr := godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.Component(logging.New(cfg.Log), "server")
	if envErr != nil {
		logger.Debug().Msg("no .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	var runs ports.RunRepository
	if cfg.Database.Enabled() {
		db, err := initDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		runs = postgres.NewRunRepository(db)
		logger.Info().Msg("using PostgreSQL run store")
	} else {
		runs = memory.NewRunRepository()
		logger.Warn().Msg("DATABASE_URL not set, runs are kept in memory")
	}

	recorder := metrics.New()
	gin.SetMode(cfg.Server.GinMode)

	server := api.NewServer(api.Dependencies{
		Planning:     app.NewPlanningService(runs, planning.NewSweeper(cfg.Planning.Workers), recorder, cfg.Planning.DailyTraffic),
		Analysis:     app.NewAnalysisService(runs, validation.NewBattery(validation.DefaultCapacity), recorder, cfg.Defaults),
		Runs:         runs,
		Metrics:      recorder,
		Logger:       logger,
		Defaults:     cfg.Defaults,
		Schema:       cfg.Dataset,
		DailyTraffic: cfg.Planning.DailyTraffic,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("starting server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
