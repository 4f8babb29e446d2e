package tools

import (
	"encoding/json"

	"github.com/hrygo/decorchat/store"
)

// SearchKind tags a SearchResult.
type SearchKind int

const (
	SearchEmpty SearchKind = iota
	SearchVector
	SearchText
	SearchFailed
)

func (k SearchKind) String() string {
	switch k {
	case SearchEmpty:
		return "empty"
	case SearchVector:
		return "vector"
	case SearchText:
		return "text"
	case SearchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SearchResult is the outcome of an item lookup. It serializes to a
// different JSON shape per Kind.
type SearchResult struct {
	Kind    SearchKind
	Query   string
	Items   []*store.CatalogItem
	Scores  []float32 // parallel to Items, vector results only
	Details string    // failed results only
}

// Empty is the result for an inventory without any items.
func Empty() SearchResult {
	return SearchResult{Kind: SearchEmpty}
}

// VectorResults is the result for similarity hits, best first.
func VectorResults(query string, hits []*store.CatalogItemWithScore) SearchResult {
	r := SearchResult{
		Kind:   SearchVector,
		Query:  query,
		Items:  make([]*store.CatalogItem, len(hits)),
		Scores: make([]float32, len(hits)),
	}
	for i, hit := range hits {
		r.Items[i] = hit.Item
		r.Scores[i] = hit.Score
	}
	return r
}

// TextResults is the result of the substring fallback.
func TextResults(query string, items []*store.CatalogItem) SearchResult {
	if items == nil {
		items = []*store.CatalogItem{}
	}
	return SearchResult{Kind: SearchText, Query: query, Items: items}
}

// Failed is the result for any search error.
func Failed(query string, err error) SearchResult {
	return SearchResult{Kind: SearchFailed, Query: query, Details: err.Error()}
}

// Count is the number of items found.
func (r SearchResult) Count() int {
	return len(r.Items)
}

type scoredItem struct {
	*store.CatalogItem
	Score float32 `json:"score"`
}

type foundJSON struct {
	Results    any    `json:"results"`
	SearchType string `json:"searchType"`
	Query      string `json:"query"`
	Count      int    `json:"count"`
}

func (r SearchResult) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case SearchEmpty:
		return json.Marshal(struct {
			Error   string `json:"error"`
			Message string `json:"message"`
			Count   int    `json:"count"`
		}{"No items found in inventory", "The inventory database appears to be empty", 0})
	case SearchVector:
		results := make([]scoredItem, len(r.Items))
		for i, item := range r.Items {
			results[i] = scoredItem{CatalogItem: item, Score: r.Scores[i]}
		}
		return json.Marshal(foundJSON{Results: results, SearchType: "vector", Query: r.Query, Count: len(results)})
	case SearchText:
		items := r.Items
		if items == nil {
			items = []*store.CatalogItem{}
		}
		return json.Marshal(foundJSON{Results: items, SearchType: "text", Query: r.Query, Count: len(items)})
	default:
		return json.Marshal(struct {
			Error   string `json:"error"`
			Details string `json:"details"`
			Query   string `json:"query"`
		}{"Failed to search inventory", r.Details, r.Query})
	}
}
