package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/golang-cz/devslog"
	_ "github.com/lib/pq"

	"conduit/internal/auth"
	"conduit/internal/core"
	"conduit/internal/migrations"
	"conduit/internal/utils/databaseutils"
)

type application struct {
	config  config
	logger  *slog.Logger
	core    *core.Core
	auth    *auth.Auth
	session databaseutils.Session
}

func main() {
	logger := configLogger()
	logger.Info("Starting application...")

	cfg := loadConfig()

	db, err := openDBConnection(cfg)
	if err != nil {
		logger.Error("Error opening database connection", "error", err)
		os.Exit(1)
	}

	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Error closing database connection", "error", err)
		}
	}()

	logger.Info("Database connection established successfully")

	if err := migrations.Up(db); err != nil {
		logger.Error("Error applying database migrations", "error", err)
		os.Exit(1)
	}

	sqlTemplate := databaseutils.NewSQLTemplate(db, cfg.db.queryTimeout)

	app := &application{
		config:  cfg,
		logger:  logger,
		core:    core.NewCore(sqlTemplate, logger),
		auth:    auth.New(cfg.jwt.secret, cfg.jwt.ttl),
		session: databaseutils.NewSession(db),
	}

	if err := app.serve(); err != nil {
		logger.Error("Error starting server", "error", err)
		os.Exit(1)
	}
}

func configLogger() *slog.Logger {
	handler := devslog.NewHandler(
		os.Stdout, &devslog.Options{
			HandlerOptions: &slog.HandlerOptions{
				AddSource: true,
				Level:     slog.LevelDebug,
			},
			NewLineAfterLog: false,
		})

	return slog.New(handler)
}

func openDBConnection(cfg config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.db.maxOpenConns)
	db.SetMaxIdleConns(cfg.db.maxIdleConns)
	db.SetConnMaxIdleTime(cfg.db.maxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}
