package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/decorchat/store"
)

func seedCatalog(ctx context.Context, t *testing.T, ts *store.Store) {
	t.Helper()
	items := []*store.CatalogItem{
		{
			ItemID:      "sofa-1",
			Name:        "Harbor Sofa",
			Description: "A deep blue velvet three-seat sofa",
			Brand:       "Casa",
			Categories:  []string{"Living Room", "Seating"},
			Prices:      store.Prices{FullPrice: 1200, SalePrice: 999},
			Embedding:   UnitVector(0),
		},
		{
			ItemID:      "lamp-1",
			Name:        "Arc Floor Lamp",
			Description: "Brushed brass lamp with a linen shade",
			Categories:  []string{"Lighting"},
			Embedding:   UnitVector(1),
		},
		{
			ItemID:      "chair-1",
			Name:        "Reading Chair",
			Description: "Armchair sized for a lamp-side corner",
			Categories:  []string{"Seating"},
			Embedding:   UnitVector(0, 1),
		},
		{
			ItemID:      "rug-1",
			Name:        "100% Wool Rug",
			Description: "Hand-knotted rug",
			Categories:  []string{"Rugs"},
		},
	}
	for _, item := range items {
		_, err := ts.UpsertCatalogItem(ctx, item)
		require.NoError(t, err)
	}
}

func TestCatalogItemStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	count, err := ts.CountCatalogItems(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	seedCatalog(ctx, t, ts)

	count, err = ts.CountCatalogItems(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, count)

	sofa, err := ts.GetCatalogItem(ctx, "sofa-1")
	require.NoError(t, err)
	require.NotNil(t, sofa)
	assert.Equal(t, "Harbor Sofa", sofa.Name)
	assert.Equal(t, "Casa", sofa.Brand)
	assert.Equal(t, []string{"Living Room", "Seating"}, sofa.Categories)
	assert.Equal(t, 999.0, sofa.Prices.SalePrice)
	assert.True(t, sofa.HasEmbedding)
	assert.Nil(t, sofa.Embedding)

	missing, err := ts.GetCatalogItem(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Replacing an item keeps its row id and bumps the content.
	sofa.Description = "A deep green velvet three-seat sofa"
	sofa.Embedding = UnitVector(0)
	updated, err := ts.UpsertCatalogItem(ctx, sofa)
	require.NoError(t, err)
	assert.Equal(t, sofa.ID, updated.ID)
	count, err = ts.CountCatalogItems(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, count)

	deleted, err := ts.DeleteCatalogItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	count, err = ts.CountCatalogItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCatalogItemEmbeddingLifecycle(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	seedCatalog(ctx, t, ts)

	pending, err := ts.ListCatalogItems(ctx, &store.FindCatalogItem{MissingEmbedding: true})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "rug-1", pending[0].ItemID)

	err = ts.UpdateCatalogItemEmbedding(ctx, &store.UpdateCatalogItemEmbedding{
		ItemID:        "rug-1",
		EmbeddingText: "100% Wool Rug Hand-knotted rug",
		Embedding:     UnitVector(2),
	})
	require.NoError(t, err)

	pending, err = ts.ListCatalogItems(ctx, &store.FindCatalogItem{MissingEmbedding: true})
	require.NoError(t, err)
	assert.Empty(t, pending)

	rug, err := ts.GetCatalogItem(ctx, "rug-1")
	require.NoError(t, err)
	assert.Equal(t, "100% Wool Rug Hand-knotted rug", rug.EmbeddingText)

	// Re-upserting without an embedding queues the item for embedding again.
	rug.Embedding = nil
	_, err = ts.UpsertCatalogItem(ctx, rug)
	require.NoError(t, err)
	pending, err = ts.ListCatalogItems(ctx, &store.FindCatalogItem{MissingEmbedding: true})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	err = ts.UpdateCatalogItemEmbedding(ctx, &store.UpdateCatalogItemEmbedding{ItemID: "ghost", Embedding: UnitVector(3)})
	require.Error(t, err)
	err = ts.UpdateCatalogItemEmbedding(ctx, &store.UpdateCatalogItemEmbedding{ItemID: "rug-1"})
	require.Error(t, err)

	limit := 2
	page, err := ts.ListCatalogItems(ctx, &store.FindCatalogItem{Limit: &limit})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "sofa-1", page[0].ItemID)
}

func TestCatalogItemVectorSearch(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	seedCatalog(ctx, t, ts)

	tests := []struct {
		name     string
		vector   []float32
		minScore float32
		limit    int
		want     []string
	}{
		{name: "ranked by similarity", vector: UnitVector(0), minScore: 0.5, limit: 10, want: []string{"sofa-1", "chair-1"}},
		{name: "threshold drops weak hits", vector: UnitVector(0), minScore: 0.9, limit: 10, want: []string{"sofa-1"}},
		{name: "limit applies", vector: UnitVector(1), minScore: 0.5, limit: 1, want: []string{"lamp-1"}},
		{name: "nothing similar", vector: UnitVector(9), minScore: 0.5, limit: 10, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := ts.SearchCatalogItemsByVector(ctx, &store.CatalogVectorSearch{
				Vector:   tt.vector,
				Limit:    tt.limit,
				MinScore: tt.minScore,
			})
			require.NoError(t, err)
			got := []string{}
			for _, r := range results {
				got = append(got, r.Item.ItemID)
				assert.GreaterOrEqual(t, r.Score, tt.minScore)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	// New embeddings are searchable right away.
	err := ts.UpdateCatalogItemEmbedding(ctx, &store.UpdateCatalogItemEmbedding{ItemID: "rug-1", Embedding: UnitVector(9)})
	require.NoError(t, err)
	results, err := ts.SearchCatalogItemsByVector(ctx, &store.CatalogVectorSearch{Vector: UnitVector(9), Limit: 5, MinScore: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rug-1", results[0].Item.ItemID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
}

func TestCatalogItemTextSearch(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	seedCatalog(ctx, t, ts)

	tests := []struct {
		query string
		want  []string
	}{
		{query: "velvet", want: []string{"sofa-1"}},
		{query: "LAMP", want: []string{"lamp-1", "chair-1"}},
		{query: "seating", want: []string{"sofa-1", "chair-1"}},
		{query: "lighting", want: []string{"lamp-1"}},
		{query: "100%", want: []string{"rug-1"}},
		{query: "%", want: []string{"rug-1"}},
		{query: "_", want: []string{}},
		{query: "wardrobe", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			items, err := ts.SearchCatalogItemsByText(ctx, &store.CatalogTextSearch{Query: tt.query, Limit: 10})
			require.NoError(t, err)
			got := []string{}
			for _, item := range items {
				got = append(got, item.ItemID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
