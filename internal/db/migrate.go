package db

import (
	"context"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		filename   TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`

// ApplyMigrations runs every .sql file of fsys not yet recorded in
// schema_migrations, in lexical order, each one in its own transaction.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) error {
	l := logger.FromContext(ctx)

	if _, err := pool.Exec(ctx, createMigrationsTable); err != nil {
		return errors.Wrap(err, "failed to create schema_migrations")
	}

	files, err := migrationFiles(fsys)
	if err != nil {
		return err
	}

	for _, f := range files {
		name := path.Base(f)

		var exists bool
		if err = pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, name,
		).Scan(&exists); err != nil {
			return errors.Wrapf(err, "failed to check migration %s", name)
		}
		if exists {
			continue
		}

		raw, err := fs.ReadFile(fsys, f)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration %s", name)
		}
		sqlText := strings.TrimSpace(string(raw))
		if sqlText == "" {
			return errors.Errorf("empty migration: %s", name)
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to begin transaction")
		}
		if _, err = tx.Exec(ctx, sqlText); err != nil {
			_ = tx.Rollback(ctx)
			return errors.Wrapf(err, "migration %s failed", name)
		}
		if _, err = tx.Exec(ctx, `INSERT INTO schema_migrations(filename) VALUES($1)`, name); err != nil {
			_ = tx.Rollback(ctx)
			return errors.Wrapf(err, "failed to record migration %s", name)
		}
		if err = tx.Commit(ctx); err != nil {
			return errors.Wrapf(err, "failed to commit migration %s", name)
		}

		l.Info("migration applied", zap.String("file", name))
	}

	return nil
}

func migrationFiles(fsys fs.FS) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".sql") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list migrations")
	}

	sort.Slice(files, func(i, j int) bool {
		return path.Base(files[i]) < path.Base(files[j])
	})
	return files, nil
}
