package sqlite

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const catalogCollection = "catalog_item"

type indexHit struct {
	itemID string
	score  float32
}

// vectorIndex is an in-memory chromem collection mirroring the stored embeddings.
// Writes mark it stale and the next query rebuilds it from the table.
type vectorIndex struct {
	mu    sync.Mutex
	col   *chromem.Collection
	stale bool
}

func newVectorIndex() *vectorIndex {
	return &vectorIndex{stale: true}
}

func (x *vectorIndex) invalidate() {
	x.mu.Lock()
	x.stale = true
	x.mu.Unlock()
}

// noEmbedding rejects content-only documents; every vector comes from the table.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("catalog index only accepts precomputed embeddings")
}

func (x *vectorIndex) rebuild(ctx context.Context, load func(context.Context) (map[string][]float32, error)) error {
	embeddings, err := load(ctx)
	if err != nil {
		return err
	}
	col, err := chromem.NewDB().CreateCollection(catalogCollection, nil, noEmbedding)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, 0, len(embeddings))
	for itemID, vec := range embeddings {
		if isZero(vec) {
			continue
		}
		docs = append(docs, chromem.Document{ID: itemID, Embedding: vec})
	}
	if len(docs) > 0 {
		if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return err
		}
	}
	x.col = col
	x.stale = false
	return nil
}

// query returns up to n hits ordered by descending similarity.
func (x *vectorIndex) query(ctx context.Context, load func(context.Context) (map[string][]float32, error), vector []float32, n int) ([]indexHit, error) {
	if isZero(vector) {
		return nil, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.stale || x.col == nil {
		if err := x.rebuild(ctx, load); err != nil {
			return nil, err
		}
	}

	count := x.col.Count()
	if count == 0 {
		return nil, nil
	}
	if n > count {
		n = count
	}
	results, err := x.col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]indexHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, indexHit{itemID: r.ID, score: r.Similarity})
	}
	return hits, nil
}

func isZero(vec []float32) bool {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return len(vec) == 0 || math.Sqrt(sum) == 0
}
