package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hrygo/decorchat/internal/profile"
	"github.com/hrygo/decorchat/store"
	"github.com/hrygo/decorchat/store/db"
)

// Dimensions matches the vector column of the PostgreSQL schema.
const Dimensions = 768

// NewTestingStore opens a migrated store for the driver named by DRIVER
// (sqlite when unset).
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	prof := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(prof)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	s := store.New(dbDriver, prof)
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	driver := getDriverFromEnv()
	prof := &profile.Profile{
		Mode:    "dev",
		Driver:  driver,
		Version: "test",
	}
	switch driver {
	case "postgres":
		prof.DSN = GetPostgresDSN(t)
	default:
		prof.Data = t.TempDir()
		prof.DSN = filepath.Join(prof.Data, "decorchat_test.db")
	}
	return prof
}

func getDriverFromEnv() string {
	if driver := os.Getenv("DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}

// UnitVector returns a Dimensions-long vector whose weight sits on the given axes.
func UnitVector(axes ...int) []float32 {
	vec := make([]float32, Dimensions)
	for _, axis := range axes {
		vec[axis%Dimensions] = 1
	}
	return vec
}
