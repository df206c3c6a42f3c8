// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/easycaremarket/b2b-catalog/internal/catalog"
	"github.com/easycaremarket/b2b-catalog/internal/db"
	"github.com/easycaremarket/b2b-catalog/internal/supplier"
)

// ErrSyncRunning rejects a start request while a run is active. No queuing.
var ErrSyncRunning = errors.New("a sync run is already in progress")

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Fetcher is the slice of the supplier client the orchestrator needs.
type Fetcher interface {
	Authenticate(ctx context.Context) error
	FetchPage(ctx context.Context, cursor string) (*supplier.Page, error)
}

type Config struct {
	MaxPages   int           // 0 = no page cap
	MaxRetries int           // fetch attempts per page
	RateDelay  time.Duration // minimum delay between page fetches
	Workers    int           // concurrent upserts within one page
}

// Syncer drives one supplier synchronization run at a time: fetch pages,
// transform records, upsert into the catalog, keep a sync_logs row current.
type Syncer struct {
	log     zerolog.Logger
	client  Fetcher
	tf      *catalog.Transformer
	store   *catalog.Store
	db      *gorm.DB
	limiter *rate.Limiter
	cfg     Config

	mu      sync.Mutex
	running bool
	current string // run ID of the active run, if any
	wg      sync.WaitGroup
}

func New(log zerolog.Logger, client Fetcher, tf *catalog.Transformer, store *catalog.Store, gdb *gorm.DB, cfg Config) *Syncer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RateDelay <= 0 {
		cfg.RateDelay = time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Syncer{
		log:     log,
		client:  client,
		tf:      tf,
		store:   store,
		db:      gdb,
		limiter: rate.NewLimiter(rate.Every(cfg.RateDelay), 1),
		cfg:     cfg,
	}
}

// Start kicks off one asynchronous run and returns its ID immediately, or
// ErrSyncRunning if one is already active.
func (s *Syncer) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return "", ErrSyncRunning
	}
	s.running = true
	runID := uuid.NewString()
	s.current = runID
	s.mu.Unlock()

	entry := db.SyncLog{
		RunID:     runID,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return "", err
	}

	// the run outlives the caller (typically an HTTP request), so detach
	// from its cancelation
	runCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(runCtx, &entry)
	}()
	return runID, nil
}

func (s *Syncer) run(ctx context.Context, entry *db.SyncLog) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log := s.log.With().Str("run_id", entry.RunID).Logger()
	log.Info().Msg("sync run started")

	if err := s.client.Authenticate(ctx); err != nil {
		log.Error().Err(err).Msg("authentication failed, aborting run")
		s.finish(log, entry, StatusFailed, err)
		return
	}

	cursor := ""
	for page := 1; s.cfg.MaxPages <= 0 || page <= s.cfg.MaxPages; page++ {
		// rate limit applies regardless of how long the previous fetch took
		if err := s.limiter.Wait(ctx); err != nil {
			s.finish(log, entry, StatusFailed, err)
			return
		}

		pg, err := s.fetchWithRetry(ctx, log, cursor, entry)
		if err != nil {
			log.Error().Err(err).Int("page", page).Msg("page fetch failed, aborting run")
			s.finish(log, entry, StatusFailed, err)
			return
		}

		entry.Pages++
		s.processPage(ctx, log, pg, entry)
		s.persist(log, entry)

		log.Info().
			Int("page", page).
			Int("records", len(pg.Records)).
			Int("created", entry.Created).
			Int("updated", entry.Updated).
			Int("errors", entry.Errors).
			Msg("page processed")

		if pg.Next == "" {
			break
		}
		cursor = pg.Next
	}

	s.finish(log, entry, StatusSucceeded, nil)
}

// fetchWithRetry retries transient failures up to MaxRetries attempts with
// exponential backoff. Fatal and auth errors surface immediately.
func (s *Syncer) fetchWithRetry(ctx context.Context, log zerolog.Logger, cursor string, entry *db.SyncLog) (*supplier.Page, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		pg, err := s.client.FetchPage(ctx, cursor)
		if err == nil {
			return pg, nil
		}

		var transient *supplier.TransientError
		if !errors.As(err, &transient) {
			return nil, err
		}
		lastErr = err
		entry.Errors++
		entry.LastError = err.Error()
		log.Warn().Err(err).Int("attempt", attempt).Msg("transient fetch error")

		if attempt < s.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backoff(attempt)):
			}
		}
	}
	return nil, lastErr
}

func (s *Syncer) backoff(attempt int) time.Duration {
	d := 500 * time.Millisecond << (attempt - 1)
	if d > 8*time.Second {
		d = 8 * time.Second
	}
	return d
}

// processPage transforms and upserts one page's records concurrently. Each
// SKU appears at most once per page, so parallel upserts keep arrival order
// for any given SKU across pages.
func (s *Syncer) processPage(ctx context.Context, log zerolog.Logger, pg *supplier.Page, entry *db.SyncLog) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, raw := range pg.Records {
		g.Go(func() error {
			p, err := s.tf.Transform(raw)
			if err != nil {
				// bad record: count it and keep the run going
				mu.Lock()
				entry.Errors++
				entry.LastError = err.Error()
				mu.Unlock()
				log.Warn().Err(err).Msg("record skipped")
				return nil
			}

			created, err := s.store.Upsert(gctx, p)
			if err != nil {
				mu.Lock()
				entry.Errors++
				entry.LastError = err.Error()
				mu.Unlock()
				log.Error().Err(err).Str("sku", p.SKU).Msg("upsert failed")
				return nil
			}

			mu.Lock()
			if created {
				entry.Created++
			} else {
				entry.Updated++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Syncer) persist(log zerolog.Logger, entry *db.SyncLog) {
	err := s.db.Model(&db.SyncLog{}).Where("run_id = ?", entry.RunID).Updates(map[string]any{
		"pages":      entry.Pages,
		"created":    entry.Created,
		"updated":    entry.Updated,
		"errors":     entry.Errors,
		"last_error": entry.LastError,
	}).Error
	if err != nil {
		log.Error().Err(err).Msg("persisting sync progress failed")
	}
}

func (s *Syncer) finish(log zerolog.Logger, entry *db.SyncLog, status string, cause error) {
	now := time.Now().UTC()
	entry.Status = status
	entry.FinishedAt = &now
	if cause != nil {
		entry.LastError = cause.Error()
		if entry.Errors == 0 {
			entry.Errors = 1
		}
	}

	err := s.db.Model(&db.SyncLog{}).Where("run_id = ?", entry.RunID).Updates(map[string]any{
		"status":      entry.Status,
		"finished_at": entry.FinishedAt,
		"pages":       entry.Pages,
		"created":     entry.Created,
		"updated":     entry.Updated,
		"errors":      entry.Errors,
		"last_error":  entry.LastError,
	}).Error
	if err != nil {
		log.Error().Err(err).Msg("finalizing sync log failed")
	}

	log.Info().
		Str("status", status).
		Int("pages", entry.Pages).
		Int("created", entry.Created).
		Int("updated", entry.Updated).
		Int("errors", entry.Errors).
		Msg("sync run finished")
}

// Status returns the sync log for runID, or the most recent run when runID
// is empty.
func (s *Syncer) Status(runID string) (*db.SyncLog, error) {
	var entry db.SyncLog
	q := s.db.Model(&db.SyncLog{})
	if runID != "" {
		q = q.Where("run_id = ?", runID)
	}
	if err := q.Order("started_at DESC").First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Recent returns the last n runs, newest first.
func (s *Syncer) Recent(n int) ([]db.SyncLog, error) {
	if n <= 0 {
		n = 10
	}
	var entries []db.SyncLog
	err := s.db.Order("started_at DESC").Limit(n).Find(&entries).Error
	return entries, err
}

func (s *Syncer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// CurrentRun returns the active run's ID, or "" when idle.
func (s *Syncer) CurrentRun() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ""
	}
	return s.current
}

// Wait blocks until the active run (if any) finishes. Used on shutdown and
// in tests.
func (s *Syncer) Wait() {
	s.wg.Wait()
}
