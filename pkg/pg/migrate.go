package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"

	"github.com/dmitrymomot/kanbax/pkg/pg/migrations"
)

// Migrate applies the schema migrations. Embedded migrations are used unless
// cfg.MigrationsPath points at a directory on disk.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, log *slog.Logger) error {
	var (
		fsys fs.FS = migrations.FS
		dir        = "."
	)
	if cfg.MigrationsPath != "" {
		if _, err := os.Stat(cfg.MigrationsPath); err != nil {
			return errors.Join(ErrMigrationsDirNotFound, err)
		}
		fsys = os.DirFS(cfg.MigrationsPath)
	}

	db := OpenDB(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration connection", "error", err)
		}
	}()

	goose.SetBaseFS(fsys)
	goose.SetLogger(&gooseLogger{log: log})
	goose.SetTableName(cfg.MigrationsTable)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}

// gooseLogger routes goose's printf output into slog.
type gooseLogger struct {
	log *slog.Logger
}

func (a *gooseLogger) Fatalf(format string, v ...any) {
	a.log.Error(fmt.Sprintf(format, v...), "component", "migrations")
}

func (a *gooseLogger) Printf(format string, v ...any) {
	a.log.Info(fmt.Sprintf(format, v...), "component", "migrations")
}
