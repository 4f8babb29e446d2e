package store

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

// Migration files live in store/migration/{driver}/NNNNN_description.sql and
// are applied in order by goose. Each driver reports its goose dialect.

//go:embed migration
var migrationFS embed.FS

// Migrate applies every pending migration for the current driver.
func (s *Store) Migrate(ctx context.Context) error {
	dialect := s.driver.Dialect()
	sub, err := fs.Sub(migrationFS, "migration/"+s.profile.Driver)
	if err != nil {
		return errors.Wrapf(err, "no migrations for driver %q", s.profile.Driver)
	}

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "failed to set goose dialect")
	}

	if err := goose.UpContext(ctx, s.driver.GetDB(), "."); err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}

	version, err := goose.GetDBVersionContext(ctx, s.driver.GetDB())
	if err != nil {
		return errors.Wrap(err, "failed to read schema version")
	}
	slog.Info("database migrated", "driver", s.profile.Driver, "version", version)
	return nil
}
