package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"wristwatch-be/internal/logger"
	"wristwatch-be/migrations"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

var ErrMissingDBURL = errors.New("DB_URL not set in environment")

func main() {
	_ = godotenv.Load()

	mode := flag.String("mode", "up", "migration mode: up, down or status")
	flag.Parse()

	if err := migrate(os.Getenv("DB_URL"), *mode); err != nil {
		logger.L().Fatal("migration failed", zap.String("mode", *mode), zap.Error(err))
	}
	logger.L().Info("migrations finished", zap.String("mode", *mode))
}

func migrate(dbURL, mode string) error {
	if dbURL == "" {
		return ErrMissingDBURL
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect db: %w", err)
	}
	defer db.Close()

	return run(db, mode)
}

func setup() error {
	goose.SetBaseFS(migrations.FS)
	return goose.SetDialect("postgres")
}

func run(db *sql.DB, mode string) error {
	if err := setup(); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	switch mode {
	case "up":
		return goose.Up(db, ".")
	case "down":
		return goose.Down(db, ".")
	case "status":
		return goose.Status(db, ".")
	default:
		return fmt.Errorf("unknown mode: %s (use 'up', 'down' or 'status')", mode)
	}
}
