package postgres

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/PauloFidalgo/cmov-5g/internal/domain"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Execer is the subset of *sql.DB used to apply migrations.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ApplyMigrations executes the bundled SQL migrations in lexical order. Every
// migration is idempotent, so applying them again is harmless.
func ApplyMigrations(ctx context.Context, db Execer, logger domain.Logger) error {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return errors.Wrap(err, "list migrations")
	}
	sort.Strings(names)

	for _, name := range names {
		contents, err := migrationFiles.ReadFile(name)
		if err != nil {
			return errors.Wrapf(err, "read migration %q", name)
		}

		statements := strings.TrimSpace(string(contents))
		if statements == "" {
			logf(ctx, logger, "skipping empty migration %s", name)
			continue
		}

		logf(ctx, logger, "applying migration %s", name)
		if _, err := db.ExecContext(ctx, statements); err != nil {
			return errors.Wrapf(err, "apply migration %q", name)
		}
	}

	if logger != nil {
		logger.Println(ctx, "migrations applied successfully")
	}
	return nil
}

func logf(ctx context.Context, logger domain.Logger, format string, v ...any) {
	if logger == nil {
		return
	}
	logger.Printf(ctx, format, v...)
}
