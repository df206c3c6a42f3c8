// internal/catalog/orders.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easycaremarket/b2b-catalog/internal/db"
)

var (
	ErrEmailTaken        = errors.New("customer with this email already exists")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyOrder        = errors.New("order must contain at least one item")
)

func (s *Store) ListCustomers(ctx context.Context) ([]db.Customer, error) {
	var customers []db.Customer
	err := s.db.WithContext(ctx).
		Where("status = ?", "active").
		Order("business_name").
		Find(&customers).Error
	return customers, err
}

func (s *Store) CreateCustomer(ctx context.Context, c db.Customer) (db.Customer, error) {
	if c.DiscountTier == "" {
		c.DiscountTier = "standard"
	}
	c.Status = "active"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Customer{}).Where("email = ?", c.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		return tx.Create(&c).Error
	})
	if err != nil {
		return db.Customer{}, err
	}
	return c, nil
}

// OrderLine is one requested order position.
type OrderLine struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// CreateOrder prices the lines at current retail, checks and decrements
// stock, and writes order + items in one transaction. Any failure rolls the
// whole order back.
func (s *Store) CreateOrder(ctx context.Context, customerID uint, lines []OrderLine, notes string) (db.Order, error) {
	if len(lines) == 0 {
		return db.Order{}, ErrEmptyOrder
	}

	order := db.Order{
		CustomerID:  customerID,
		OrderNumber: "BO" + time.Now().UTC().Format("20060102150405"),
		Status:      "pending",
		Notes:       notes,
		OrderedAt:   time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer db.Customer
		if err := tx.Select("id").Take(&customer, customerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		for _, line := range lines {
			var p db.Product
			if err := tx.Take(&p, line.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: id %d", ErrProductNotFound, line.ProductID)
				}
				return err
			}
			if line.Quantity <= 0 || line.Quantity > p.Stock {
				return fmt.Errorf("%w: product %d", ErrInsufficientStock, line.ProductID)
			}

			lineTotal := roundCurrency(p.RetailPrice * float64(line.Quantity))
			order.Items = append(order.Items, db.OrderItem{
				ProductID: p.ID,
				Quantity:  line.Quantity,
				UnitPrice: p.RetailPrice,
				LineTotal: lineTotal,
			})
			order.TotalAmount = roundCurrency(order.TotalAmount + lineTotal)

			if err := tx.Model(&db.Product{}).Where("id = ?", p.ID).
				Update("stock", gorm.Expr("stock - ?", line.Quantity)).Error; err != nil {
				return err
			}
		}

		return tx.Create(&order).Error
	})
	if err != nil {
		return db.Order{}, err
	}
	return order, nil
}
