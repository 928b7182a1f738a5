package catalog

import (
	"errors"
	"strings"
	"time"

	"b2bcatalog/internal/domain"
)

var ErrMissingGTIN = errors.New("missing gtin")

const maxGTINLen = 64

// Transform turns a raw supplier record into a storable product priced with
// markupPercent. A record without an identifier is rejected; every other
// field is coerced.
func Transform(raw RawProduct, markupPercent float64, now time.Time) (domain.Product, error) {
	gtin := strings.TrimSpace(raw.GTIN.String())
	if gtin == "" {
		return domain.Product{}, ErrMissingGTIN
	}
	if len(gtin) > maxGTINLen {
		return domain.Product{}, domain.Invalid("gtin", "longer than %d characters", maxGTINLen)
	}
	base := raw.Price.Value()
	name := strings.TrimSpace(raw.Name.String())
	if name == "" {
		name = gtin
	}
	return domain.Product{
		GTIN:         gtin,
		Name:         name,
		Brand:        strings.TrimSpace(raw.Brand.String()),
		Category:     strings.TrimSpace(raw.Category.String()),
		BasePrice:    base,
		SellingPrice: SellingPrice(base, markupPercent),
		Inventory:    ParseInventory(raw.Inventory.String()),
		Supplier:     strings.TrimSpace(raw.Supplier.String()),
		Description:  strings.TrimSpace(raw.Description.String()),
		ImageURL:     strings.TrimSpace(raw.ImageURL.String()),
		ProductURL:   strings.TrimSpace(raw.ProductURL.String()),
		Active:       true,
		LastUpdated:  now.UTC().Format(domain.TimeLayout),
	}, nil
}

// RecordError is a single record that was skipped.
type RecordError struct {
	GTIN string
	Err  error
}

func (e RecordError) Error() string {
	if e.GTIN == "" {
		return "record: " + e.Err.Error()
	}
	return "record " + e.GTIN + ": " + e.Err.Error()
}

// TransformAll transforms a batch, skipping bad records. A gtin seen twice
// keeps its last occurrence.
func TransformAll(raws []RawProduct, markupPercent float64, now time.Time) ([]domain.Product, []RecordError) {
	out := make([]domain.Product, 0, len(raws))
	seen := make(map[string]int, len(raws))
	var errs []RecordError
	for _, raw := range raws {
		p, err := Transform(raw, markupPercent, now)
		if err != nil {
			errs = append(errs, RecordError{GTIN: raw.GTIN.String(), Err: err})
			continue
		}
		if i, dup := seen[p.GTIN]; dup {
			out[i] = p
			continue
		}
		seen[p.GTIN] = len(out)
		out = append(out, p)
	}
	return out, errs
}
