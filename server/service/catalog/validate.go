package catalog

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/hrygo/decorchat/store"
)

// Validate reports the first constraint item violates.
func Validate(item *store.CatalogItem) error {
	switch {
	case strings.TrimSpace(item.ItemID) == "":
		return errors.New("item_id is required")
	case utf8.RuneCountInString(item.Name) < 2:
		return errors.Errorf("item %s: item_name must be at least 2 characters", item.ItemID)
	case utf8.RuneCountInString(item.Description) < 10:
		return errors.Errorf("item %s: item_description must be at least 10 characters", item.ItemID)
	case strings.TrimSpace(item.Brand) == "":
		return errors.Errorf("item %s: brand is required", item.ItemID)
	case item.Prices.FullPrice <= 0 || item.Prices.SalePrice <= 0:
		return errors.Errorf("item %s: prices must be positive", item.ItemID)
	case item.StockQuantity < 0:
		return errors.Errorf("item %s: stock_quantity must not be negative", item.ItemID)
	case item.WeightKg < 0:
		return errors.Errorf("item %s: weight_kg must be positive", item.ItemID)
	}

	d := item.Dimensions
	if d != (store.Dimensions{}) && (d.WidthCm <= 0 || d.HeightCm <= 0 || d.DepthCm <= 0) {
		return errors.Errorf("item %s: dimensions must be positive", item.ItemID)
	}
	for _, r := range item.UserReviews {
		if r.Rating < 1 || r.Rating > 5 {
			return errors.Errorf("item %s: review rating %d out of range 1-5", item.ItemID, r.Rating)
		}
	}
	return nil
}
