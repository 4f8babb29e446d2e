// Package catalog prepares inventory items for storage and semantic search.
package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hrygo/decorchat/store"
)

// Summarize builds the text an item is embedded from. Every fact a shopper
// might ask about ends up in one paragraph.
func Summarize(item *store.CatalogItem) string {
	reviews := make([]string, 0, len(item.UserReviews))
	for _, r := range item.UserReviews {
		reviews = append(reviews, fmt.Sprintf("Rated %d on %s: %s", r.Rating, r.ReviewDate, r.Comment))
	}

	basicInfo := fmt.Sprintf("%s %s from the brand %s", item.Name, item.Description, item.Brand)
	price := fmt.Sprintf("At full price it costs: %s USD, On sale it costs: %s USD",
		formatPrice(item.Prices.FullPrice), formatPrice(item.Prices.SalePrice))

	return fmt.Sprintf("%s. Manufacturer: Made in %s. Categories: %s. Reviews: %s. Price: %s. Notes: %s",
		basicInfo,
		item.ManufacturerAddress.Country,
		strings.Join(item.Categories, ", "),
		strings.Join(reviews, " "),
		price,
		item.Notes,
	)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
