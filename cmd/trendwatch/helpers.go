package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/trendwatch/internal/cache"
	"github.com/abelbrown/trendwatch/internal/config"
	"github.com/abelbrown/trendwatch/internal/engine"
	"github.com/abelbrown/trendwatch/internal/fetch"
	"github.com/abelbrown/trendwatch/internal/logging"
	"github.com/abelbrown/trendwatch/internal/otel"
	"github.com/abelbrown/trendwatch/internal/store"
	"github.com/abelbrown/trendwatch/internal/trend"
	"github.com/abelbrown/trendwatch/internal/validate"
)

// app holds everything a command needs. close releases it in reverse order.
type app struct {
	cfg      *config.Config
	events   *otel.Logger
	store    *store.Store
	detector *trend.Detector
	pipeline *validate.Pipeline
	engine   *engine.Engine
	closers  []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// loadConfig reads the config file, an optional keys file, and validates.
func loadConfig(path, keysFile string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if keysFile != "" {
		if err := cfg.LoadKeysFromFile(keysFile); err != nil {
			return nil, fmt.Errorf("keys file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp wires the components. withStore opens SQLite even when the
// fingerprint backend does not need it.
func newApp(ctx context.Context, cfg *config.Config, withStore bool) (*app, error) {
	a := &app{cfg: cfg}

	if err := logging.Init(cfg.Logging.Dir, cfg.Logging.Level); err != nil {
		logging.InitWriter(os.Stderr, cfg.Logging.Level)
		logging.Warn("file logging unavailable", "err", err)
	}
	a.closers = append(a.closers, logging.Close)

	var closeEvents func()
	a.events, closeEvents = openEvents(cfg.Logging.Events)
	a.closers = append(a.closers, closeEvents)
	a.events.Info(otel.KindStartup, "main", "trendwatch starting")

	if withStore || cfg.Fingerprints.Backend == config.BackendSQLite {
		st, err := openStore(cfg.Storage.Path)
		if err != nil {
			a.close()
			return nil, err
		}
		st.SetFingerprintTTL(cfg.FingerprintTTL())
		a.store = st
		a.closers = append(a.closers, func() { st.Close() })
	}

	a.detector = trend.NewDetector(cfg.TrendOptions(), a.events)

	a.pipeline = validate.New(cfg.ValidateOptions())
	a.pipeline.SetEvents(a.events)
	if rc := factChecker(cfg); rc != nil {
		a.pipeline.SetChecker(rc)
	}

	prints, closeFn, err := a.fingerprints(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	if prints != nil {
		a.pipeline.SetFingerprints(prints)
	}
	if closeFn != nil {
		a.closers = append(a.closers, closeFn)
	}

	fopts := fetch.DefaultOptions()
	fopts.Concurrency = cfg.Fetch.Concurrency
	fopts.Timeout = time.Duration(cfg.Fetch.TimeoutSec) * time.Second
	fopts.UserAgent = cfg.Fetch.UserAgent
	fetcher := fetch.NewFetcher(fopts, a.events)

	opts := engine.Options{
		Sources:        cfg.ActiveSources(),
		MinReliability: cfg.Preferences.MinReliabilityScore,
		MaxAge:         time.Duration(cfg.Preferences.MaxAgeHours) * time.Hour,
		Topics:         cfg.Preferences.TopicsOfInterest,
	}
	if a.store != nil {
		a.engine = engine.New(fetcher, a.detector, a.pipeline, a.store, opts, a.events)
	} else {
		a.engine = engine.New(fetcher, a.detector, a.pipeline, nil, opts, a.events)
	}

	a.closers = append(a.closers, func() {
		a.events.Info(otel.KindShutdown, "main", "trendwatch stopping")
	})
	return a, nil
}

// factChecker returns the remote checker when it is fully configured, or
// nil to keep the pipeline's heuristic.
func factChecker(cfg *config.Config) validate.FactChecker {
	rc := validate.NewRemoteChecker(cfg.FactCheck.APIKey, cfg.FactCheck.Endpoint)
	if rc.Available() {
		return rc
	}
	if cfg.FactCheck.APIKey != "" {
		logging.Warn("fact-check endpoint not configured, using heuristic checker")
	}
	return nil
}

// fingerprints selects the configured fingerprint backend. A nil store
// turns cross-run duplicate detection off.
func (a *app) fingerprints(ctx context.Context) (validate.FingerprintStore, func(), error) {
	cfg := a.cfg
	switch cfg.Fingerprints.Backend {
	case config.BackendMemory:
		fc := cache.NewFingerprintCache(cache.NewMemory(cfg.FingerprintTTL()), cfg.FingerprintTTL())
		return fc, func() { fc.Close() }, nil

	case config.BackendRedis:
		rc, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.FingerprintTTL())
		if err != nil {
			return nil, nil, err
		}
		fc := cache.NewFingerprintCache(rc, cfg.FingerprintTTL())
		return fc, func() { fc.Close() }, nil

	case config.BackendSQLite:
		if n, err := a.store.PruneFingerprints(ctx, time.Now()); err != nil {
			logging.Warn("prune fingerprints failed", "err", err)
		} else if n > 0 {
			logging.Info("pruned expired fingerprints", "count", n)
		}
		return a.store, nil, nil
	}
	return nil, nil, nil
}

// openStore opens SQLite, creating the parent directory.
func openStore(path string) (*store.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

// openEvents opens the JSONL event log for append. Failures disable the
// log rather than the command.
func openEvents(path string) (*otel.Logger, func()) {
	null := func() (*otel.Logger, func()) {
		l := otel.NewNullLogger()
		return l, l.Close
	}
	if path == "" {
		return null()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logging.Warn("event log disabled", "err", err)
		return null()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logging.Warn("event log disabled", "err", err)
		return null()
	}
	l := otel.NewLogger(f)
	return l, func() {
		l.Close()
		f.Close()
	}
}
