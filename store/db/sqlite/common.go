package sqlite

import (
	"encoding/json"
	"strings"

	"github.com/hrygo/decorchat/store"
)

// placeholder returns a placeholder for SQLite (uses ?)
func placeholder(int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite
func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s anywhere, with wildcards in s escaped.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// encodePayload serializes the catalog item without its embedding text,
// which lives in its own column.
func encodePayload(item *store.CatalogItem) (string, error) {
	clone := *item
	clone.EmbeddingText = ""
	b, err := json.Marshal(&clone)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeEmbedding(embedding []float32) (any, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(embedding)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
