package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/decorchat/plugin/ai"
	"github.com/hrygo/decorchat/plugin/ai/timeout"
	"github.com/hrygo/decorchat/store"
)

const (
	// ItemLookupName is the tool name the model calls.
	ItemLookupName = "item_lookup"

	// ItemLookupDescription is shown to the model.
	ItemLookupDescription = "Gathers furniture item details from the Inventory database"

	// Default search limit for item lookup results.
	defaultSearchLimit = 10

	// Maximum search limit to prevent excessive results.
	maxSearchLimit = 50

	// Default minimum cosine similarity for vector hits.
	defaultMinScore = 0.5
)

// Inventory is the catalog access item lookup needs.
type Inventory interface {
	CountCatalogItems(ctx context.Context) (int, error)
	SearchCatalogItemsByVector(ctx context.Context, search *store.CatalogVectorSearch) ([]*store.CatalogItemWithScore, error)
	SearchCatalogItemsByText(ctx context.Context, search *store.CatalogTextSearch) ([]*store.CatalogItem, error)
}

// QueryEmbedder embeds a search query.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ItemLookupTool searches the inventory by meaning first and by text when
// nothing similar enough is found.
type ItemLookupTool struct {
	inventory Inventory
	embedder  QueryEmbedder
	retrier   *ai.Retrier
	minScore  float32
}

// ItemLookupOption configures an ItemLookupTool.
type ItemLookupOption func(*ItemLookupTool)

// WithMinScore sets the similarity below which vector hits are discarded.
func WithMinScore(score float32) ItemLookupOption {
	return func(t *ItemLookupTool) {
		if score > 0 {
			t.minScore = score
		}
	}
}

// WithRetrier replaces the retry policy around embedding and search calls.
func WithRetrier(r *ai.Retrier) ItemLookupOption {
	return func(t *ItemLookupTool) { t.retrier = r }
}

// NewItemLookupTool creates a new item lookup tool.
func NewItemLookupTool(inventory Inventory, embedder QueryEmbedder, opts ...ItemLookupOption) (*ItemLookupTool, error) {
	if inventory == nil {
		return nil, fmt.Errorf("inventory cannot be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	t := &ItemLookupTool{
		inventory: inventory,
		embedder:  embedder,
		retrier:   ai.NewRetrier(),
		minScore:  defaultMinScore,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *ItemLookupTool) Name() string {
	return ItemLookupName
}

func (t *ItemLookupTool) Description() string {
	return ItemLookupDescription
}

// Parameters returns the JSON Schema of ItemLookupInput.
func (t *ItemLookupTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query",
			},
			"n": map[string]any{
				"type":        "number",
				"description": "Number of results to return",
				"default":     defaultSearchLimit,
			},
		},
		"required": []string{"query"},
	}
}

// ItemLookupInput represents the input for item lookup.
type ItemLookupInput struct {
	Query string `json:"query"`
	// N is a JSON number; fractions are truncated.
	N float64 `json:"n,omitempty"`
}

// Limit converts N to a result count; out-of-range values are clamped.
func (in ItemLookupInput) Limit() int {
	switch {
	case in.N < 1:
		return defaultSearchLimit
	case in.N > maxSearchLimit:
		return maxSearchLimit
	default:
		return int(in.N)
	}
}

// Run parses input, searches and returns the serialized SearchResult.
// Search problems are reported inside the result, never as an error.
func (t *ItemLookupTool) Run(ctx context.Context, input string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.ToolExecutionTimeout)
	defer cancel()

	var in ItemLookupInput
	var result SearchResult
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		result = Failed("", fmt.Errorf("invalid JSON input: %w", err))
	} else if strings.TrimSpace(in.Query) == "" {
		result = Failed(in.Query, fmt.Errorf("query cannot be empty"))
	} else {
		result = t.Search(ctx, in.Query, in.Limit())
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Search looks up at most limit items matching query.
func (t *ItemLookupTool) Search(ctx context.Context, query string, limit int) (result SearchResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("item lookup panicked", "query", query, "panic", r)
			result = Failed(query, fmt.Errorf("panic: %v", r))
		}
	}()

	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	count, err := t.inventory.CountCatalogItems(ctx)
	if err != nil {
		return t.failed(query, err)
	}
	if count == 0 {
		slog.Info("item lookup on empty inventory", "query", query)
		return Empty()
	}

	vector, err := ai.Retry(ctx, t.retrier, func(ctx context.Context) ([]float32, error) {
		return t.embedder.Embed(ctx, query)
	})
	if err != nil {
		return t.failed(query, fmt.Errorf("embed query: %w", err))
	}

	hits, err := ai.Retry(ctx, t.retrier, func(ctx context.Context) ([]*store.CatalogItemWithScore, error) {
		return t.inventory.SearchCatalogItemsByVector(ctx, &store.CatalogVectorSearch{
			Vector:   vector,
			Limit:    limit,
			MinScore: t.minScore,
		})
	})
	if err != nil {
		return t.failed(query, fmt.Errorf("vector search: %w", err))
	}
	if len(hits) > 0 {
		slog.Debug("item lookup vector hits", "query", query, "count", len(hits))
		return VectorResults(query, hits)
	}

	items, err := t.inventory.SearchCatalogItemsByText(ctx, &store.CatalogTextSearch{Query: query, Limit: limit})
	if err != nil {
		return t.failed(query, fmt.Errorf("text search: %w", err))
	}
	slog.Debug("item lookup text fallback", "query", query, "count", len(items))
	return TextResults(query, items)
}

func (t *ItemLookupTool) failed(query string, err error) SearchResult {
	slog.Warn("item lookup failed", "query", query, "error", err)
	return Failed(query, err)
}
