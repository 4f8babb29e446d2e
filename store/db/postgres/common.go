package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hrygo/decorchat/store"
)

// placeholder returns a placeholder for PostgreSQL (uses $1, $2, etc.)
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns n placeholders for PostgreSQL
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
