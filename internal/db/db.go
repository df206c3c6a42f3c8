package db

import (
	"fmt"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Handle struct {
	DB     *gorm.DB
	Driver string
	DSN    string
}

// Open connects using the configured driver. An empty sqlite DSN falls back
// to a database file inside dataDir.
func Open(driver, dsn, dataDir string) (*Handle, error) {
	var dial gorm.Dialector
	switch driver {
	case "", "sqlite":
		driver = "sqlite"
		if dsn == "" {
			dsn = filepath.Join(dataDir, "b2b_catalog.db")
		}
		dial = sqlite.Open(dsn)
	case "postgres":
		dial = postgres.Open(dsn)
	case "mysql":
		dial = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	gdb, err := gorm.Open(dial, &gorm.Config{
		// Logger: logger.Default.LogMode(logger.Info), // enable for verbose SQL
	})
	if err != nil {
		return nil, err
	}

	// sqlite (also :memory: in tests) gets a single connection so writes
	// serialize and every session sees the same database.
	if driver == "sqlite" {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &Handle{DB: gdb, Driver: driver, DSN: dsn}, nil
}
