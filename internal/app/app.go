// Package app opens the configured collection store and the storefront
// service on top of it.
package app

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/idgen"
	"storefront/internal/media"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/pkg/config"
	"storefront/pkg/database"
	"storefront/pkg/logger"
	"storefront/prometheus"

	"go.uber.org/zap"
)

type App struct {
	Config  *config.Config
	Store   *store.Store
	Service *service.Service
}

// OpenBackend opens the backend named by cfg.Store.Backend. The file backend
// is recovered before it is returned.
func OpenBackend(ctx context.Context, cfg *config.Config, rec *prometheus.Recorder) (store.Backend, error) {
	log := logger.FromContext(ctx)

	if cfg.Store.Backend != config.BackendFile {
		db, err := database.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("Database connection established", zap.String("backend", cfg.Store.Backend))
		return store.NewSQLBackend(db), nil
	}

	backend, err := store.OpenFileBackend(cfg.Store.DataDir)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	report, err := backend.Recover()
	if rec != nil {
		rec.ObserveRecover(time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("recover %s: %w", cfg.Store.DataDir, err)
	}
	if len(report.Replayed) > 0 || len(report.Discarded) > 0 || report.TempFiles > 0 {
		log.Warn("Recovered interrupted commits",
			zap.Strings("replayed", report.Replayed),
			zap.Strings("discarded", report.Discarded),
			zap.Int("temp_files", report.TempFiles))
	}
	return backend, nil
}

// Open builds the store and service from cfg and creates missing collections.
// A nil rec disables metrics.
func Open(ctx context.Context, cfg *config.Config, rec *prometheus.Recorder) (*App, error) {
	backend, err := OpenBackend(ctx, cfg, rec)
	if err != nil {
		return nil, err
	}

	storeOpts := []store.Option{store.WithLockTimeout(cfg.Store.LockTimeout)}
	svcOpts := []service.Option{
		service.WithIDOptions(
			idgen.WithLength(cfg.IDs.Length),
			idgen.WithMaxAttempts(cfg.IDs.MaxAttempts),
		),
		service.WithImageRemover(media.NewDir(cfg.Media.Dir)),
	}
	if rec != nil {
		storeOpts = append(storeOpts, store.WithObserver(rec))
		svcOpts = append(svcOpts, service.WithMetrics(rec))
	}

	st := store.New(backend, storeOpts...)
	svc := service.New(st, svcOpts...)
	if err := svc.Init(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("initialize collections: %w", err)
	}
	return &App{Config: cfg, Store: st, Service: svc}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}
