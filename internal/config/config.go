// internal/config/config.go
package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Main application config.
type Config struct {
	ListenAddr string   `json:"listen_addr"`
	Database   Database `json:"database"`
	Supplier   Supplier `json:"supplier"`
}

type Database struct {
	Driver string `json:"driver"` // sqlite | postgres | mysql
	DSN    string `json:"dsn"`    // file path for sqlite, full DSN otherwise
}

// Supplier holds everything the sync pipeline needs to talk to the
// wholesale supplier API. Email and password are normally injected via
// SUPPLIER_EMAIL / SUPPLIER_PASSWORD rather than stored in the file.
type Supplier struct {
	BaseURL        string  `json:"base_url"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	MarkupRate     float64 `json:"markup_rate"`
	PageSize       int     `json:"page_size"`
	MaxPages       int     `json:"max_pages"`
	MaxRetries     int     `json:"max_retries"`
	RateDelayMS    int     `json:"rate_delay_ms"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

func defaults() *Config {
	return &Config{
		ListenAddr: ":8080",
		Database: Database{
			Driver: "sqlite",
		},
		Supplier: Supplier{
			BaseURL:        "https://api.supplier.example.com",
			MarkupRate:     1.10,
			PageSize:       100,
			MaxPages:       20,
			MaxRetries:     3,
			RateDelayMS:    1000,
			TimeoutSeconds: 30,
		},
	}
}

// LoadOrCreate reads the config file, writing one with defaults on first run.
// Environment overrides are applied after the file is read, so secrets can
// stay out of the file entirely.
func LoadOrCreate(path string) (*Config, bool, error) {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaults()
			if err := Save(path, cfg); err != nil {
				return nil, false, fmt.Errorf("writing default config: %w", err)
			}
			cfg.applyEnv()
			return cfg, true, nil
		}
		return nil, false, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, false, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyEnv()
	return &cfg, false, nil
}

func Save(path string, cfg *Config) error {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SUPPLIER_BASE_URL"); v != "" {
		c.Supplier.BaseURL = v
	}
	if v := os.Getenv("SUPPLIER_EMAIL"); v != "" {
		c.Supplier.Email = v
	}
	if v := os.Getenv("SUPPLIER_PASSWORD"); v != "" {
		c.Supplier.Password = v
	}
}
