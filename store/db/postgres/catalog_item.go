package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/decorchat/store"
)

const catalogItemColumns = `id, item_id, item_description, embedding_text, embedding IS NOT NULL, payload, created_ts, updated_ts`

// UpsertCatalogItem inserts an item or replaces the item with the same item_id.
// Replacing an item without an embedding clears the stored one so it gets recomputed.
func (d *DB) UpsertCatalogItem(ctx context.Context, upsert *store.CatalogItem) (*store.CatalogItem, error) {
	if upsert.ItemID == "" {
		return nil, errors.New("item_id is required")
	}
	payload, err := encodePayload(upsert)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal catalog item payload")
	}

	var embedding any
	if len(upsert.Embedding) > 0 {
		embedding = pgvector.NewVector(upsert.Embedding)
	}
	now := time.Now().Unix()
	categories := upsert.Categories
	if categories == nil {
		categories = []string{}
	}

	stmt := `
		INSERT INTO catalog_item (item_id, item_name, item_description, categories, embedding_text, embedding, payload, created_ts, updated_ts)
		VALUES (` + placeholders(9) + `)
		ON CONFLICT (item_id)
		DO UPDATE SET
			item_name = EXCLUDED.item_name,
			item_description = EXCLUDED.item_description,
			categories = EXCLUDED.categories,
			embedding_text = EXCLUDED.embedding_text,
			embedding = EXCLUDED.embedding,
			payload = EXCLUDED.payload,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`
	err = d.db.QueryRowContext(ctx, stmt,
		upsert.ItemID,
		upsert.Name,
		upsert.Description,
		pq.Array(categories),
		upsert.EmbeddingText,
		embedding,
		payload,
		now,
		now,
	).Scan(&upsert.ID, &upsert.CreatedTs, &upsert.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert catalog item")
	}
	upsert.HasEmbedding = embedding != nil
	return upsert, nil
}

func (d *DB) ListCatalogItems(ctx context.Context, find *store.FindCatalogItem) ([]*store.CatalogItem, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ItemID != nil {
		where, args = append(where, "item_id = "+placeholder(len(args)+1)), append(args, *find.ItemID)
	}
	if find.MissingEmbedding {
		where = append(where, "embedding IS NULL")
	}

	query := `SELECT ` + catalogItemColumns + ` FROM catalog_item WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`
	if find.Limit != nil {
		query, args = query+` LIMIT `+placeholder(len(args)+1), append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list catalog items")
	}
	defer rows.Close()

	list := []*store.CatalogItem{}
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) CountCatalogItems(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_item`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count catalog items")
	}
	return count, nil
}

func (d *DB) UpdateCatalogItemEmbedding(ctx context.Context, update *store.UpdateCatalogItemEmbedding) error {
	if len(update.Embedding) == 0 {
		return errors.New("embedding is empty")
	}
	stmt := `UPDATE catalog_item SET embedding_text = ` + placeholder(1) + `, embedding = ` + placeholder(2) + `, updated_ts = ` + placeholder(3) + ` WHERE item_id = ` + placeholder(4)
	result, err := d.db.ExecContext(ctx, stmt, update.EmbeddingText, pgvector.NewVector(update.Embedding), time.Now().Unix(), update.ItemID)
	if err != nil {
		return errors.Wrap(err, "failed to update catalog item embedding")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.Errorf("catalog item %q not found", update.ItemID)
	}
	return nil
}

func (d *DB) DeleteCatalogItems(ctx context.Context) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM catalog_item`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete catalog items")
	}
	return result.RowsAffected()
}

// SearchCatalogItemsByVector performs vector similarity search using pgvector.
func (d *DB) SearchCatalogItemsByVector(ctx context.Context, search *store.CatalogVectorSearch) ([]*store.CatalogItemWithScore, error) {
	limit := search.Limit
	if limit <= 0 {
		limit = 10
	}

	// The <=> operator computes cosine distance (1 - cosine_similarity),
	// so ordering by distance ASC returns the most similar first.
	query := `
		SELECT ` + catalogItemColumns + `, 1 - (embedding <=> ` + placeholder(1) + `) AS score
		FROM catalog_item
		WHERE embedding IS NOT NULL
			AND 1 - (embedding <=> ` + placeholder(1) + `) >= ` + placeholder(2) + `
		ORDER BY embedding <=> ` + placeholder(1) + `
		LIMIT ` + placeholder(3)

	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(search.Vector), search.MinScore, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search catalog items")
	}
	defer rows.Close()

	results := []*store.CatalogItemWithScore{}
	for rows.Next() {
		var score float64
		item, err := scanCatalogItem(rows, &score)
		if err != nil {
			return nil, err
		}
		results = append(results, &store.CatalogItemWithScore{Item: item, Score: float32(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// SearchCatalogItemsByText matches the query as a case-insensitive substring
// of the name, description, any category or the embedding text.
func (d *DB) SearchCatalogItemsByText(ctx context.Context, search *store.CatalogTextSearch) ([]*store.CatalogItem, error) {
	limit := search.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT ` + catalogItemColumns + `
		FROM catalog_item
		WHERE item_name ILIKE ` + placeholder(1) + `
			OR item_description ILIKE ` + placeholder(1) + `
			OR embedding_text ILIKE ` + placeholder(1) + `
			OR EXISTS (SELECT 1 FROM unnest(categories) AS c WHERE c ILIKE ` + placeholder(1) + `)
		ORDER BY id ASC
		LIMIT ` + placeholder(2)

	rows, err := d.db.QueryContext(ctx, query, containsPattern(search.Query), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to text search catalog items")
	}
	defer rows.Close()

	list := []*store.CatalogItem{}
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// scanCatalogItem scans catalogItemColumns followed by any extra destinations.
func scanCatalogItem(rows *sql.Rows, extra ...any) (*store.CatalogItem, error) {
	var (
		id           int32
		itemID       string
		description  string
		embedText    string
		hasEmbedding bool
		payload      []byte
		createdTs    int64
		updatedTs    int64
	)
	dest := append([]any{&id, &itemID, &description, &embedText, &hasEmbedding, &payload, &createdTs, &updatedTs}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return nil, errors.Wrap(err, "failed to scan catalog item")
	}

	item := &store.CatalogItem{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, item); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal catalog item payload")
		}
	}
	item.ID = id
	item.ItemID = itemID
	item.Description = description
	item.EmbeddingText = embedText
	item.HasEmbedding = hasEmbedding
	item.CreatedTs = createdTs
	item.UpdatedTs = updatedTs
	return item, nil
}
