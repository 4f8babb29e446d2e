package catalog

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/hrygo/decorchat/store"
)

// Seeder writes items into the catalog with their search summaries.
// Embeddings are left to the embedding runner.
type Seeder struct {
	store *store.Store
}

func NewSeeder(store *store.Store) *Seeder {
	return &Seeder{store: store}
}

// SeedResult reports what Seed did.
type SeedResult struct {
	Deleted  int64
	Upserted int
}

// Seed upserts items, clearing the catalog first when reset is set.
func (s *Seeder) Seed(ctx context.Context, items []*store.CatalogItem, reset bool) (*SeedResult, error) {
	result := &SeedResult{}
	if reset {
		deleted, err := s.store.DeleteCatalogItems(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to clear catalog")
		}
		result.Deleted = deleted
		slog.Info("cleared catalog", "deleted", deleted)
	}

	for _, item := range items {
		if err := Validate(item); err != nil {
			return result, err
		}
		item.EmbeddingText = Summarize(item)
		item.Embedding = nil
		if _, err := s.store.UpsertCatalogItem(ctx, item); err != nil {
			return result, errors.Wrapf(err, "failed to save item %s", item.ItemID)
		}
		result.Upserted++
		slog.Debug("saved catalog item", "item_id", item.ItemID)
	}
	return result, nil
}
