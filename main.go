package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/easycaremarket/b2b-catalog/internal/catalog"
	conf "github.com/easycaremarket/b2b-catalog/internal/config"
	"github.com/easycaremarket/b2b-catalog/internal/db"
	"github.com/easycaremarket/b2b-catalog/internal/logs"
	"github.com/easycaremarket/b2b-catalog/internal/server"
	"github.com/easycaremarket/b2b-catalog/internal/supplier"
	"github.com/easycaremarket/b2b-catalog/internal/syncer"
)

// override via: -ldflags "-X 'main.ver=1.0.1'"
var ver = "1.0.0"

func main() {
	appDir := mustAppDataDir("b2b-catalog")
	log := logs.New(filepath.Join(appDir, "app.log"), true)

	cfgPath := filepath.Join(appDir, "config.json")
	cfg, firstRun, err := conf.LoadOrCreate(cfgPath)
	if err != nil {
		panic(err)
	}
	if firstRun {
		log.Info().Msgf("default configuration written to %s", cfgPath)
	}

	dbh, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, appDir)
	if err != nil {
		log.Fatal().Err(err).Msg("DB open error")
	}
	if err := dbh.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("DB migrate error")
	}
	log.Info().Str("driver", dbh.Driver).Msg("DB ready")
	sqlDB, _ := dbh.DB.DB()
	defer sqlDB.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := supplier.New(log.With().Str("component", "supplier").Logger(), supplier.Config{
		BaseURL:    cfg.Supplier.BaseURL,
		Email:      cfg.Supplier.Email,
		Password:   cfg.Supplier.Password,
		PageSize:   cfg.Supplier.PageSize,
		MaxRetries: cfg.Supplier.MaxRetries,
		Timeout:    time.Duration(cfg.Supplier.TimeoutSeconds) * time.Second,
	})
	tf := catalog.NewTransformer(cfg.Supplier.MarkupRate)
	store := catalog.NewStore(log.With().Str("component", "catalog").Logger(), dbh.DB)
	sy := syncer.New(log.With().Str("component", "syncer").Logger(), client, tf, store, dbh.DB, syncer.Config{
		MaxPages:   cfg.Supplier.MaxPages,
		MaxRetries: cfg.Supplier.MaxRetries,
		RateDelay:  time.Duration(cfg.Supplier.RateDelayMS) * time.Millisecond,
	})
	srv := server.New(log.With().Str("component", "http").Logger(), store, sy, client, ver)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Routes(),
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msgf("EasyCare Market B2B API %s listening", ver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	// let an in-flight sync run finish its bookkeeping
	sy.Wait()
	log.Info().Msg("bye")
}

func mustAppDataDir(name string) string {
	if v := os.Getenv("DATA_DIR"); v != "" {
		_ = os.MkdirAll(v, 0o755)
		return v
	}
	base, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	p := filepath.Join(base, name)
	_ = os.MkdirAll(p, 0o755)
	return p
}
