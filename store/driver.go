package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Dialect is the goose dialect used to migrate this driver's schema.
	Dialect() string

	// CatalogItem model related methods.
	UpsertCatalogItem(ctx context.Context, upsert *CatalogItem) (*CatalogItem, error)
	ListCatalogItems(ctx context.Context, find *FindCatalogItem) ([]*CatalogItem, error)
	CountCatalogItems(ctx context.Context) (int, error)
	UpdateCatalogItemEmbedding(ctx context.Context, update *UpdateCatalogItemEmbedding) error
	DeleteCatalogItems(ctx context.Context) (int64, error)

	// SearchCatalogItemsByVector performs semantic search using cosine similarity.
	// Items without an embedding, or scoring below MinScore, are never returned.
	SearchCatalogItemsByVector(ctx context.Context, search *CatalogVectorSearch) ([]*CatalogItemWithScore, error)

	// SearchCatalogItemsByText performs case-insensitive substring search.
	SearchCatalogItemsByText(ctx context.Context, search *CatalogTextSearch) ([]*CatalogItem, error)

	// Thread model related methods.
	UpsertThread(ctx context.Context, upsert *Thread) (*Thread, error)
	GetThread(ctx context.Context, id string) (*Thread, error)
}
