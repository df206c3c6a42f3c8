// internal/db/models.go
package db

import "time"

// products — identity is the supplier SKU, retail price is always derived
// from cost by the transformer, never written directly by API callers.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SKU         string    `gorm:"uniqueIndex;column:sku" json:"sku"`
	Name        string    `json:"name"`
	Brand       string    `gorm:"index" json:"brand"`
	Category    string    `gorm:"index" json:"category"`
	CostPrice   float64   `json:"cost_price"`
	RetailPrice float64   `json:"retail_price"`
	Stock       int       `json:"stock"`
	Supplier    string    `json:"supplier"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `json:"image_url"`
	Active      bool      `gorm:"index;default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// sync_logs — one row per synchronization run, finalized exactly once.
type SyncLog struct {
	ID         uint       `gorm:"primaryKey" json:"-"`
	RunID      string     `gorm:"uniqueIndex;column:run_id" json:"run_id"`
	Status     string     `gorm:"index" json:"status"` // running / succeeded / failed
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Pages      int        `json:"pages"`
	Created    int        `json:"created"`
	Updated    int        `json:"updated"`
	Errors     int        `json:"errors"`
	LastError  string     `gorm:"type:text" json:"last_error,omitempty"`
}

// customers
type Customer struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	BusinessName string    `json:"business_name"`
	ContactName  string    `json:"contact_name"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	PostalCode   string    `json:"postal_code"`
	TaxID        string    `json:"tax_id"`
	DiscountTier string    `gorm:"default:standard" json:"discount_tier"`
	Status       string    `gorm:"index;default:active" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// orders
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	CustomerID  uint        `gorm:"index" json:"customer_id"`
	OrderNumber string      `gorm:"uniqueIndex" json:"order_number"`
	TotalAmount float64     `json:"total_amount"`
	Status      string      `gorm:"index;default:pending" json:"status"`
	Notes       string      `gorm:"type:text" json:"notes"`
	OrderedAt   time.Time   `json:"ordered_at"`
	Items       []OrderItem `json:"items"`
}

// order_items
type OrderItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	OrderID   uint    `gorm:"index" json:"order_id"`
	ProductID uint    `gorm:"index" json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}
