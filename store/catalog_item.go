package store

import (
	"context"
)

// Dimensions is the physical size of a catalog item.
type Dimensions struct {
	WidthCm  float64 `json:"width_cm" yaml:"width_cm"`
	HeightCm float64 `json:"height_cm" yaml:"height_cm"`
	DepthCm  float64 `json:"depth_cm" yaml:"depth_cm"`
}

// Address is a manufacturer address.
type Address struct {
	Street     string `json:"street" yaml:"street"`
	City       string `json:"city" yaml:"city"`
	State      string `json:"state" yaml:"state"`
	PostalCode string `json:"postal_code" yaml:"postal_code"`
	Country    string `json:"country" yaml:"country"`
}

// Prices holds the full and sale price in USD.
type Prices struct {
	FullPrice float64 `json:"full_price" yaml:"full_price"`
	SalePrice float64 `json:"sale_price" yaml:"sale_price"`
}

// Review is a customer review; Rating is 1-5.
type Review struct {
	ReviewDate string `json:"review_date" yaml:"review_date"`
	Rating     int    `json:"rating" yaml:"rating"`
	Comment    string `json:"comment" yaml:"comment"`
}

// CatalogItem is a product in the inventory.
// The JSON form is what the inventory search tool hands to the model, so the
// embedding and row bookkeeping are never serialized.
type CatalogItem struct {
	ID int32 `json:"-" yaml:"-"`

	ItemID              string     `json:"item_id" yaml:"item_id"`
	SKU                 string     `json:"sku" yaml:"sku"`
	Name                string     `json:"item_name" yaml:"item_name"`
	Description         string     `json:"item_description" yaml:"item_description"`
	Brand               string     `json:"brand" yaml:"brand"`
	Materials           []string   `json:"materials" yaml:"materials"`
	Color               string     `json:"color" yaml:"color"`
	Dimensions          Dimensions `json:"dimensions" yaml:"dimensions"`
	WeightKg            float64    `json:"weight_kg" yaml:"weight_kg"`
	ManufacturerAddress Address    `json:"manufacturer_address" yaml:"manufacturer_address"`
	Prices              Prices     `json:"prices" yaml:"prices"`
	StockQuantity       int32      `json:"stock_quantity" yaml:"stock_quantity"`
	Categories          []string   `json:"categories" yaml:"categories"`
	UserReviews         []Review   `json:"user_reviews" yaml:"user_reviews"`
	Notes               string     `json:"notes" yaml:"notes"`

	// EmbeddingText is the searchable summary the embedding was computed from.
	EmbeddingText string `json:"embedding_text,omitempty" yaml:"-"`
	// Embedding is only populated on writes; reads report HasEmbedding instead.
	Embedding    []float32 `json:"-" yaml:"-"`
	HasEmbedding bool      `json:"-" yaml:"-"`

	CreatedTs int64 `json:"-" yaml:"-"`
	UpdatedTs int64 `json:"-" yaml:"-"`
}

// FindCatalogItem is the find condition for catalog items.
type FindCatalogItem struct {
	ItemID *string
	// MissingEmbedding restricts the result to items without an embedding.
	MissingEmbedding bool
	Limit            *int
}

// UpdateCatalogItemEmbedding sets the summary text and embedding of one item.
type UpdateCatalogItemEmbedding struct {
	ItemID        string
	EmbeddingText string
	Embedding     []float32
}

// CatalogItemWithScore is a vector search hit.
type CatalogItemWithScore struct {
	Item  *CatalogItem
	Score float32 // Cosine similarity, higher is more similar
}

// CatalogVectorSearch represents the options for vector search.
type CatalogVectorSearch struct {
	Vector   []float32
	Limit    int
	MinScore float32
}

// CatalogTextSearch represents the options for substring search over
// name, description, categories and embedding text.
type CatalogTextSearch struct {
	Query string
	Limit int
}

func (s *Store) UpsertCatalogItem(ctx context.Context, upsert *CatalogItem) (*CatalogItem, error) {
	return s.driver.UpsertCatalogItem(ctx, upsert)
}

func (s *Store) ListCatalogItems(ctx context.Context, find *FindCatalogItem) ([]*CatalogItem, error) {
	return s.driver.ListCatalogItems(ctx, find)
}

// GetCatalogItem returns the item with the given item_id, or nil if none exists.
func (s *Store) GetCatalogItem(ctx context.Context, itemID string) (*CatalogItem, error) {
	limit := 1
	list, err := s.driver.ListCatalogItems(ctx, &FindCatalogItem{ItemID: &itemID, Limit: &limit})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) CountCatalogItems(ctx context.Context) (int, error) {
	return s.driver.CountCatalogItems(ctx)
}

func (s *Store) UpdateCatalogItemEmbedding(ctx context.Context, update *UpdateCatalogItemEmbedding) error {
	return s.driver.UpdateCatalogItemEmbedding(ctx, update)
}

func (s *Store) SearchCatalogItemsByVector(ctx context.Context, search *CatalogVectorSearch) ([]*CatalogItemWithScore, error) {
	return s.driver.SearchCatalogItemsByVector(ctx, search)
}

func (s *Store) SearchCatalogItemsByText(ctx context.Context, search *CatalogTextSearch) ([]*CatalogItem, error) {
	return s.driver.SearchCatalogItemsByText(ctx, search)
}

// DeleteCatalogItems removes every catalog item and returns how many were deleted.
func (s *Store) DeleteCatalogItems(ctx context.Context) (int64, error) {
	return s.driver.DeleteCatalogItems(ctx)
}
