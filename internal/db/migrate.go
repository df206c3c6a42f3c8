package db

import (
	"fmt"
)

// Migrate creates/updates the schema. Indexes come from the model tags, so
// plain AutoMigrate is enough here.
func (h *Handle) Migrate() error {
	if err := h.DB.AutoMigrate(
		&Product{},
		&SyncLog{},
		&Customer{},
		&Order{},
		&OrderItem{},
	); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}
	return nil
}
