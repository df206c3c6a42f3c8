// internal/catalog/transform.go
package catalog

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/easycaremarket/b2b-catalog/internal/db"
	"github.com/easycaremarket/b2b-catalog/internal/supplier"
)

// ValidationError marks a single bad supplier record. The run skips the
// record and keeps going.
type ValidationError struct {
	SKU    string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.SKU == "" {
		return "invalid record: " + e.Reason
	}
	return fmt.Sprintf("invalid record %s: %s", e.SKU, e.Reason)
}

const DefaultMarkup = 1.10

// Transformer maps raw supplier records to catalog products, applying the
// configured markup. Pure; safe for concurrent use.
type Transformer struct {
	markup float64
	titler cases.Caser
}

func NewTransformer(markup float64) *Transformer {
	if markup <= 0 {
		markup = DefaultMarkup
	}
	return &Transformer{
		markup: markup,
		titler: cases.Title(language.English),
	}
}

func (t *Transformer) Transform(raw supplier.RawRecord) (db.Product, error) {
	sku := strings.TrimSpace(raw.SKU)
	if sku == "" {
		return db.Product{}, &ValidationError{Reason: "empty sku"}
	}
	if raw.Cost < 0 {
		return db.Product{}, &ValidationError{SKU: sku, Reason: "negative cost"}
	}
	if raw.Inventory < 0 || raw.Inventory != math.Trunc(raw.Inventory) {
		return db.Product{}, &ValidationError{SKU: sku, Reason: "quantity is not a non-negative integer"}
	}

	return db.Product{
		SKU:         sku,
		Name:        strings.TrimSpace(raw.Name),
		Brand:       t.normalize(raw.Brand),
		Category:    t.normalize(raw.Category),
		CostPrice:   raw.Cost,
		RetailPrice: roundCurrency(raw.Cost * t.markup),
		Stock:       int(raw.Inventory),
		Supplier:    strings.TrimSpace(raw.Supplier),
		Description: strings.TrimSpace(raw.Description),
		ImageURL:    strings.TrimSpace(raw.ImageURL),
		Active:      true,
	}, nil
}

func (t *Transformer) normalize(s string) string {
	return t.titler.String(strings.TrimSpace(s))
}

// roundCurrency rounds half-up to 2 decimal places.
func roundCurrency(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
