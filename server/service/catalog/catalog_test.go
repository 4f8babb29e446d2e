package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/decorchat/plugin/ai"
	"github.com/hrygo/decorchat/store"
	teststore "github.com/hrygo/decorchat/store/test"
)

func sampleItem() *store.CatalogItem {
	return &store.CatalogItem{
		ItemID:              "vase-001",
		Name:                "Ruby Glass Vase",
		Description:         "Hand-blown crimson glass",
		Brand:               "Lumen & Co",
		ManufacturerAddress: store.Address{Country: "Italy"},
		Prices:              store.Prices{FullPrice: 59.99, SalePrice: 45},
		Categories:          []string{"Decor", "Vases"},
		UserReviews: []store.Review{
			{ReviewDate: "2024-03-02", Rating: 5, Comment: "Gorgeous."},
			{ReviewDate: "2024-04-10", Rating: 4, Comment: "A bit small."},
		},
		Notes: "Each piece is unique.",
	}
}

func TestSummarize(t *testing.T) {
	want := "Ruby Glass Vase Hand-blown crimson glass from the brand Lumen & Co. " +
		"Manufacturer: Made in Italy. " +
		"Categories: Decor, Vases. " +
		"Reviews: Rated 5 on 2024-03-02: Gorgeous. Rated 4 on 2024-04-10: A bit small.. " +
		"Price: At full price it costs: 59.99 USD, On sale it costs: 45 USD. " +
		"Notes: Each piece is unique."
	assert.Equal(t, want, Summarize(sampleItem()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*store.CatalogItem)
		errMsg string
	}{
		{"valid", func(*store.CatalogItem) {}, ""},
		{"missing id", func(i *store.CatalogItem) { i.ItemID = " " }, "item_id is required"},
		{"short name", func(i *store.CatalogItem) { i.Name = "V" }, "item_name"},
		{"short description", func(i *store.CatalogItem) { i.Description = "short" }, "item_description"},
		{"missing brand", func(i *store.CatalogItem) { i.Brand = "" }, "brand"},
		{"zero price", func(i *store.CatalogItem) { i.Prices.SalePrice = 0 }, "prices"},
		{"negative stock", func(i *store.CatalogItem) { i.StockQuantity = -1 }, "stock_quantity"},
		{"partial dimensions", func(i *store.CatalogItem) { i.Dimensions = store.Dimensions{WidthCm: 10} }, "dimensions"},
		{"rating out of range", func(i *store.CatalogItem) { i.UserReviews[0].Rating = 6 }, "rating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := sampleItem()
			tt.mutate(item)
			err := Validate(item)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFixtureFile(t *testing.T) {
	items, err := LoadFixtureFile("testdata/items.yaml")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Ruby Glass Vase", items[0].Name)
	assert.Equal(t, []string{"glass"}, items[0].Materials)
	assert.Equal(t, "30141", items[0].ManufacturerAddress.PostalCode)
	assert.InDelta(t, 44.99, items[0].Prices.SalePrice, 1e-9)
	assert.Equal(t, int32(4), items[1].StockQuantity)
}

func TestLoadFixtures_Errors(t *testing.T) {
	_, err := LoadFixtures(strings.NewReader(""))
	assert.Error(t, err)

	_, err = LoadFixtures(strings.NewReader("items:\n  - item_id: x\n    unknown_field: 1\n"))
	assert.Error(t, err)

	_, err = LoadFixtures(strings.NewReader("items:\n  - item_id: x\n    item_name: ok\n"))
	assert.Error(t, err, "invalid items are rejected")
}

func TestParseItems(t *testing.T) {
	reply := "Here you go:\n```json\n[{\"item_id\":\"rug-1\",\"item_name\":\"Jute Rug\",\"item_description\":\"Natural fibre area rug\",\"brand\":\"Weave\",\"prices\":{\"full_price\":120,\"sale_price\":99},\"stock_quantity\":3,\"categories\":[\"Rugs\"],\"user_reviews\":[],\"notes\":\"\"}]\n```"
	items, err := ParseItems(reply)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Jute Rug", items[0].Name)

	_, err = ParseItems("sorry, I cannot help")
	assert.Error(t, err)
	_, err = ParseItems("[]")
	assert.Error(t, err)
}

type scriptedGenerator struct {
	mu      sync.Mutex
	calls   int
	fail    int
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.fail > 0 {
		g.fail--
		return "", ai.ErrRateLimited
	}
	// Every chunk reuses the same ids to exercise de-duplication.
	return `[{"item_id":"item-1","item_name":"Linen Throw","item_description":"Soft stonewashed linen throw","brand":"Loom","prices":{"full_price":80,"sale_price":60},"stock_quantity":9,"categories":["Textiles"],"user_reviews":[],"notes":""},
	{"item_id":"item-2","item_name":"Oak Side Table","item_description":"Solid oak side table with a shelf","brand":"Grain","prices":{"full_price":180,"sale_price":150},"stock_quantity":2,"categories":["Furniture"],"user_reviews":[],"notes":""}]`, nil
}

func fastRetrier() *ai.Retrier {
	return &ai.Retrier{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Retryable: ai.IsRateLimited}
}

func TestGenerator_Generate(t *testing.T) {
	llm := &scriptedGenerator{fail: 1}
	items, err := NewGenerator(llm, fastRetrier()).Generate(context.Background(), 20)
	require.NoError(t, err)

	// Two chunks (15 + 5), one throttled attempt retried.
	assert.Equal(t, 3, llm.calls)
	assert.Len(t, items, 4)
	ids := map[string]bool{}
	for _, item := range items {
		assert.False(t, ids[item.ItemID], "duplicate id %s", item.ItemID)
		ids[item.ItemID] = true
	}
	assert.True(t, ids["item-1"])
	assert.True(t, ids["item-1-2"])

	var sawFive bool
	for _, p := range llm.prompts {
		if strings.Contains(p, "Generate 5 home decor") {
			sawFive = true
		}
	}
	assert.True(t, sawFive)
}

func TestGenerator_Errors(t *testing.T) {
	_, err := NewGenerator(&scriptedGenerator{}, fastRetrier()).Generate(context.Background(), 0)
	assert.Error(t, err)

	_, err = NewGenerator(&scriptedGenerator{fail: 10}, fastRetrier()).Generate(context.Background(), 3)
	assert.True(t, errors.Is(err, ai.ErrRateLimited))
}

func TestSeeder_Seed(t *testing.T) {
	ctx := context.Background()
	st := teststore.NewTestingStore(ctx, t)
	seeder := NewSeeder(st)

	items, err := LoadFixtureFile("testdata/items.yaml")
	require.NoError(t, err)
	res, err := seeder.Seed(ctx, items, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Upserted)

	saved, err := st.GetCatalogItem(ctx, "vase-001")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, Summarize(items[0]), saved.EmbeddingText)
	assert.False(t, saved.HasEmbedding)

	res, err = seeder.Seed(ctx, items[:1], true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Deleted)
	count, err := st.CountCatalogItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = seeder.Seed(ctx, []*store.CatalogItem{{ItemID: "bad"}}, false)
	assert.Error(t, err)
}
