package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// zapGooseLogger adapts zap to the goose.Logger interface.
type zapGooseLogger struct {
	log *zap.SugaredLogger
}

func (l *zapGooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *zapGooseLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// MigrateUp applies every pending migration.
func MigrateUp(ctx context.Context, logger *zap.Logger, dsn string) error {
	return migrate(ctx, logger, dsn, "up", func(db *sql.DB) error {
		return goose.UpContext(ctx, db, migrationsDir)
	})
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(ctx context.Context, logger *zap.Logger, dsn string) error {
	return migrate(ctx, logger, dsn, "down", func(db *sql.DB) error {
		return goose.DownContext(ctx, db, migrationsDir)
	})
}

// MigrateStatus logs the state of every migration.
func MigrateStatus(ctx context.Context, logger *zap.Logger, dsn string) error {
	return migrate(ctx, logger, dsn, "status", func(db *sql.DB) error {
		return goose.StatusContext(ctx, db, migrationsDir)
	})
}

func migrate(ctx context.Context, logger *zap.Logger, dsn, direction string, fn func(*sql.DB) error) error {
	if dsn == "" {
		return fmt.Errorf("pg dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	goose.SetLogger(&zapGooseLogger{log: logger.Sugar()})
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	logger.Info("postgres migrations", zap.String("direction", direction))
	if err := fn(db); err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	return nil
}
