package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

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
	embedding, err := encodeEmbedding(upsert.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal embedding")
	}
	categories := upsert.Categories
	if categories == nil {
		categories = []string{}
	}
	categoriesJSON, err := json.Marshal(categories)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal categories")
	}
	now := time.Now().Unix()

	stmt := `
		INSERT INTO catalog_item (item_id, item_name, item_description, categories, embedding_text, embedding, payload, created_ts, updated_ts)
		VALUES (` + placeholders(9) + `)
		ON CONFLICT (item_id)
		DO UPDATE SET
			item_name = excluded.item_name,
			item_description = excluded.item_description,
			categories = excluded.categories,
			embedding_text = excluded.embedding_text,
			embedding = excluded.embedding,
			payload = excluded.payload,
			updated_ts = excluded.updated_ts
		RETURNING id, created_ts, updated_ts
	`
	err = d.db.QueryRowContext(ctx, stmt,
		upsert.ItemID,
		upsert.Name,
		upsert.Description,
		string(categoriesJSON),
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
	d.index.invalidate()
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
	return d.queryCatalogItems(ctx, query, args...)
}

func (d *DB) CountCatalogItems(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_item`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count catalog items")
	}
	return count, nil
}

func (d *DB) UpdateCatalogItemEmbedding(ctx context.Context, update *store.UpdateCatalogItemEmbedding) error {
	embedding, err := encodeEmbedding(update.Embedding)
	if err != nil {
		return errors.Wrap(err, "failed to marshal embedding")
	}
	if embedding == nil {
		return errors.New("embedding is empty")
	}
	stmt := `UPDATE catalog_item SET embedding_text = ?, embedding = ?, updated_ts = ? WHERE item_id = ?`
	result, err := d.db.ExecContext(ctx, stmt, update.EmbeddingText, embedding, time.Now().Unix(), update.ItemID)
	if err != nil {
		return errors.Wrap(err, "failed to update catalog item embedding")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.Errorf("catalog item %q not found", update.ItemID)
	}
	d.index.invalidate()
	return nil
}

func (d *DB) DeleteCatalogItems(ctx context.Context) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM catalog_item`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete catalog items")
	}
	d.index.invalidate()
	return result.RowsAffected()
}

// SearchCatalogItemsByVector ranks items by cosine similarity using the in-process index.
func (d *DB) SearchCatalogItemsByVector(ctx context.Context, search *store.CatalogVectorSearch) ([]*store.CatalogItemWithScore, error) {
	limit := search.Limit
	if limit <= 0 {
		limit = 10
	}

	hits, err := d.index.query(ctx, d.loadEmbeddings, search.Vector, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search catalog items")
	}

	ids := make([]any, 0, len(hits))
	for _, hit := range hits {
		if hit.score >= search.MinScore {
			ids = append(ids, hit.itemID)
		}
	}
	if len(ids) == 0 {
		return []*store.CatalogItemWithScore{}, nil
	}

	items, err := d.queryCatalogItems(ctx, `SELECT `+catalogItemColumns+` FROM catalog_item WHERE item_id IN (`+placeholders(len(ids))+`)`, ids...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*store.CatalogItem, len(items))
	for _, item := range items {
		byID[item.ItemID] = item
	}

	results := make([]*store.CatalogItemWithScore, 0, len(ids))
	for _, hit := range hits {
		item, ok := byID[hit.itemID]
		if !ok || hit.score < search.MinScore {
			continue
		}
		results = append(results, &store.CatalogItemWithScore{Item: item, Score: hit.score})
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
	pattern := containsPattern(search.Query)

	query := `
		SELECT ` + catalogItemColumns + `
		FROM catalog_item
		WHERE item_name LIKE ? ESCAPE '\'
			OR item_description LIKE ? ESCAPE '\'
			OR embedding_text LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM json_each(catalog_item.categories) WHERE json_each.value LIKE ? ESCAPE '\')
		ORDER BY id ASC
		LIMIT ?`
	return d.queryCatalogItems(ctx, query, pattern, pattern, pattern, pattern, limit)
}

// loadEmbeddings returns every stored embedding keyed by item_id.
func (d *DB) loadEmbeddings(ctx context.Context) (map[string][]float32, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT item_id, embedding FROM catalog_item WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load embeddings")
	}
	defer rows.Close()

	embeddings := map[string][]float32{}
	for rows.Next() {
		var itemID, raw string
		if err := rows.Scan(&itemID, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to scan embedding")
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			return nil, errors.Wrapf(err, "failed to decode embedding of %q", itemID)
		}
		embeddings[itemID] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

func (d *DB) queryCatalogItems(ctx context.Context, query string, args ...any) ([]*store.CatalogItem, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query catalog items")
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

func scanCatalogItem(rows *sql.Rows) (*store.CatalogItem, error) {
	var (
		id           int32
		itemID       string
		description  string
		embedText    string
		hasEmbedding bool
		payload      string
		createdTs    int64
		updatedTs    int64
	)
	if err := rows.Scan(&id, &itemID, &description, &embedText, &hasEmbedding, &payload, &createdTs, &updatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to scan catalog item")
	}

	item := &store.CatalogItem{}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), item); err != nil {
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
