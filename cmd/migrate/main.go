package main

import (
	"context"
	"os"

	"goabtest/internal/logging"
	"goabtest/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load()

	logger := logging.Component(logging.New(logging.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}), "migrate")

	databaseURL := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		databaseURL = os.Args[1]
	}
	if databaseURL == "" {
		logger.Fatal().Msg("usage: migrate [database_url] (or set DATABASE_URL)")
	}

	ctx := logger.WithContext(context.Background())

	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	logger.Info().Str("version", runner.Version()).Msg("database is up to date")
}
