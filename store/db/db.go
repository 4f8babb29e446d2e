package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/decorchat/internal/profile"
	"github.com/hrygo/decorchat/store"
	"github.com/hrygo/decorchat/store/db/postgres"
	"github.com/hrygo/decorchat/store/db/sqlite"
)

// PostgreSQL with pgvector is the production database.
// SQLite keeps embeddings as JSON and searches them with an in-process index;
// it is meant for local development and tests.

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
