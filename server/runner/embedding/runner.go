package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/decorchat/plugin/ai"
	"github.com/hrygo/decorchat/plugin/ai/timeout"
	"github.com/hrygo/decorchat/server/service/catalog"
	"github.com/hrygo/decorchat/store"
)

// Runner embeds catalog items that do not have an embedding yet.
type Runner struct {
	store            *store.Store
	embeddingService ai.EmbeddingService
	retrier          *ai.Retrier
	interval         time.Duration
	batchSize        int
}

// Option configures a Runner.
type Option func(*Runner)

// WithRetrier replaces the retry policy around embedding calls.
func WithRetrier(r *ai.Retrier) Option {
	return func(runner *Runner) { runner.retrier = r }
}

// WithInterval sets how often Run looks for new items.
func WithInterval(d time.Duration) Option {
	return func(runner *Runner) {
		if d > 0 {
			runner.interval = d
		}
	}
}

// NewRunner creates a catalog embedding runner.
// Small batches keep each request well inside the provider's payload limits.
func NewRunner(store *store.Store, embeddingService ai.EmbeddingService, opts ...Option) *Runner {
	r := &Runner{
		store:            store,
		embeddingService: embeddingService,
		retrier:          ai.NewRetrier(),
		interval:         2 * time.Minute,
		batchSize:        8,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the background task.
func (r *Runner) Run(ctx context.Context) {
	// Process once on startup
	r.processNewItems(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.processNewItems(ctx)
		case <-ctx.Done():
			slog.Info("embedding runner stopped")
			return
		}
	}
}

// RunOnce processes items once and returns how many were embedded.
func (r *Runner) RunOnce(ctx context.Context) int {
	return r.processNewItems(ctx)
}

func (r *Runner) processNewItems(ctx context.Context) int {
	items, err := r.findItemsWithoutEmbedding(ctx)
	if err != nil {
		slog.Error("failed to find catalog items without embedding", "error", err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	slog.Info("processing catalog items for embedding", "count", len(items))

	embedded := 0
	for i := 0; i < len(items); i += r.batchSize {
		select {
		case <-ctx.Done():
			slog.Info("embedding processing cancelled", "processed", i, "total", len(items))
			return embedded
		default:
		}

		end := min(i+r.batchSize, len(items))
		batch := items[i:end]

		n, err := r.processBatch(ctx, batch)
		embedded += n
		if err != nil {
			slog.Error("failed to process batch", "error", err)
			continue
		}
		slog.Info("batch processed", "count", len(batch), "progress", fmt.Sprintf("%d/%d", end, len(items)))
	}
	return embedded
}

func (r *Runner) findItemsWithoutEmbedding(ctx context.Context) ([]*store.CatalogItem, error) {
	limit := r.batchSize * 20 // Fetch more data, but process in small batches
	return r.store.ListCatalogItems(ctx, &store.FindCatalogItem{
		MissingEmbedding: true,
		Limit:            &limit,
	})
}

func (r *Runner) processBatch(ctx context.Context, items []*store.CatalogItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout.EmbeddingTimeout)
	defer cancel()

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.EmbeddingText
		if texts[i] == "" {
			texts[i] = catalog.Summarize(item)
		}
	}

	vectors, err := ai.Retry(ctx, r.retrier, func(ctx context.Context) ([][]float32, error) {
		return r.embeddingService.EmbedBatch(ctx, texts)
	})
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(items) {
		return 0, errors.Errorf("embedding service returned %d vectors for %d items", len(vectors), len(items))
	}

	stored := 0
	for i, item := range items {
		err := r.store.UpdateCatalogItemEmbedding(ctx, &store.UpdateCatalogItemEmbedding{
			ItemID:        item.ItemID,
			EmbeddingText: texts[i],
			Embedding:     vectors[i],
		})
		if err != nil {
			slog.Error("failed to store embedding", "item_id", item.ItemID, "error", err)
			continue
		}
		stored++
	}
	return stored, nil
}
