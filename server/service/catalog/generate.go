package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/decorchat/plugin/ai"
	"github.com/hrygo/decorchat/store"
)

const (
	// itemsPerPrompt bounds how many items one generation call is asked for.
	itemsPerPrompt = 15
	// maxConcurrentPrompts bounds parallel generation calls.
	maxConcurrentPrompts = 2
)

const generatePromptTemplate = `You are a helpful assistant that generates home decor store item data.
Generate %d home decor store items. Each record should include the following fields:
item_id, sku, item_name, item_description, brand, materials, color, dimensions (width_cm, height_cm, depth_cm),
weight_kg, manufacturer_address (street, city, state, postal_code, country), prices (full_price, sale_price),
stock_quantity, categories, user_reviews (review_date, rating 1-5, comment), notes.
Ensure variety in the data and realistic values.

Respond with a JSON array of objects using exactly those snake_case field names and nothing else.`

// Generator asks a language model for synthetic catalog items.
type Generator struct {
	llm     ai.TextGenerator
	retrier *ai.Retrier
}

// NewGenerator creates a Generator over llm.
func NewGenerator(llm ai.TextGenerator, retrier *ai.Retrier) *Generator {
	if retrier == nil {
		retrier = ai.NewRetrier()
	}
	return &Generator{llm: llm, retrier: retrier}
}

// Generate returns count validated items with unique item ids.
func (g *Generator) Generate(ctx context.Context, count int) ([]*store.CatalogItem, error) {
	if count <= 0 {
		return nil, errors.New("count must be positive")
	}

	chunks := make([][]*store.CatalogItem, (count+itemsPerPrompt-1)/itemsPerPrompt)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentPrompts)
	for i := range chunks {
		n := min(itemsPerPrompt, count-i*itemsPerPrompt)
		eg.Go(func() error {
			items, err := g.generateChunk(ctx, n)
			if err != nil {
				return errors.Wrapf(err, "generate chunk %d", i)
			}
			chunks[i] = items
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]int)
	var items []*store.CatalogItem
	for _, chunk := range chunks {
		for _, item := range chunk {
			if n := seen[item.ItemID]; n > 0 {
				seen[item.ItemID] = n + 1
				item.ItemID = fmt.Sprintf("%s-%d", item.ItemID, n+1)
			}
			seen[item.ItemID]++
			items = append(items, item)
		}
	}
	return items, nil
}

func (g *Generator) generateChunk(ctx context.Context, n int) ([]*store.CatalogItem, error) {
	out, err := ai.Retry(ctx, g.retrier, func(ctx context.Context) (string, error) {
		return g.llm.Generate(ctx, fmt.Sprintf(generatePromptTemplate, n))
	})
	if err != nil {
		return nil, err
	}
	items, err := ParseItems(out)
	if err != nil {
		return nil, err
	}
	slog.Info("generated catalog items", "requested", n, "received", len(items))
	return items, nil
}

// ParseItems decodes a model reply holding a JSON array of items, tolerating
// a surrounding markdown code fence, and validates every item.
func ParseItems(reply string) ([]*store.CatalogItem, error) {
	body := strings.TrimSpace(reply)
	if start := strings.Index(body, "["); start >= 0 {
		if end := strings.LastIndex(body, "]"); end > start {
			body = body[start : end+1]
		}
	}

	var items []*store.CatalogItem
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, errors.Wrap(err, "model reply is not a JSON item array")
	}
	if len(items) == 0 {
		return nil, errors.New("model reply contains no items")
	}
	for _, item := range items {
		if err := Validate(item); err != nil {
			return nil, err
		}
	}
	return items, nil
}
