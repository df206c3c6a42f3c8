// internal/catalog/store.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/easycaremarket/b2b-catalog/internal/db"
)

// Store is the persistence layer for the product catalog, keyed by supplier
// SKU. Same-SKU writes serialize at the database, so the last writer wins
// with whole rows, never interleaved fields.
type Store struct {
	log zerolog.Logger
	db  *gorm.DB
}

func NewStore(log zerolog.Logger, gdb *gorm.DB) *Store {
	return &Store{log: log, db: gdb}
}

// Upsert inserts the product if the SKU is unknown, otherwise updates all
// mutable fields. Reports whether a row was created.
func (s *Store) Upsert(ctx context.Context, p db.Product) (created bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing db.Product
		lookupErr := tx.Select("id").Where("sku = ?", p.SKU).Take(&existing).Error
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			created = true
			return tx.Create(&p).Error
		}
		if lookupErr != nil {
			return lookupErr
		}
		return tx.Model(&db.Product{}).Where("id = ?", existing.ID).Updates(map[string]any{
			"name":         p.Name,
			"brand":        p.Brand,
			"category":     p.Category,
			"cost_price":   p.CostPrice,
			"retail_price": p.RetailPrice,
			"stock":        p.Stock,
			"supplier":     p.Supplier,
			"description":  p.Description,
			"image_url":    p.ImageURL,
			"active":       true,
			"updated_at":   time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", p.SKU, err)
	}
	return created, nil
}

// Stats are the aggregate counts reported by /api/status.
type Stats struct {
	Products   int64 `json:"products"`
	InStock    int64 `json:"in_stock"`
	Categories int64 `json:"categories"`
	Brands     int64 `json:"brands"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	gdb := s.db.WithContext(ctx)

	if err := gdb.Model(&db.Product{}).Where("active = ?", true).Count(&st.Products).Error; err != nil {
		return st, err
	}
	if err := gdb.Model(&db.Product{}).Where("active = ? AND stock > 0", true).Count(&st.InStock).Error; err != nil {
		return st, err
	}
	if err := gdb.Model(&db.Product{}).Where("active = ? AND category <> ''", true).
		Distinct("category").Count(&st.Categories).Error; err != nil {
		return st, err
	}
	if err := gdb.Model(&db.Product{}).Where("active = ? AND brand <> ''", true).
		Distinct("brand").Count(&st.Brands).Error; err != nil {
		return st, err
	}
	return st, nil
}

// ListFilter narrows the product listing. Zero values mean "no filter".
type ListFilter struct {
	Search      string
	Category    string
	Brand       string
	MinPrice    *float64
	MaxPrice    *float64
	InStockOnly bool
	Page        int
	PerPage     int
}

// List returns a filtered page of products plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]db.Product, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 50
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}

	q := s.db.WithContext(ctx).Model(&db.Product{}).Where("active = ?", true)
	if f.Search != "" {
		like := "%" + strings.TrimSpace(f.Search) + "%"
		q = q.Where("name LIKE ? OR brand LIKE ? OR category LIKE ?", like, like, like)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Brand != "" {
		q = q.Where("brand = ?", f.Brand)
	}
	if f.MinPrice != nil {
		q = q.Where("retail_price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("retail_price <= ?", *f.MaxPrice)
	}
	if f.InStockOnly {
		q = q.Where("stock > 0")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []db.Product
	err := q.Order("name").
		Limit(f.PerPage).
		Offset((f.Page - 1) * f.PerPage).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GroupCount is one category or brand with its product count.
type GroupCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

func (s *Store) Categories(ctx context.Context) ([]GroupCount, error) {
	return s.groupBy(ctx, "category")
}

func (s *Store) Brands(ctx context.Context) ([]GroupCount, error) {
	return s.groupBy(ctx, "brand")
}

func (s *Store) groupBy(ctx context.Context, column string) ([]GroupCount, error) {
	var out []GroupCount
	err := s.db.WithContext(ctx).Model(&db.Product{}).
		Select(column+" as name, count(*) as count").
		Where("active = ? AND "+column+" <> ''", true).
		Group(column).
		Order("count DESC").
		Scan(&out).Error
	return out, err
}
