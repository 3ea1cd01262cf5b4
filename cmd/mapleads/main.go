package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/mapleads/api"
	"github.com/use-agent/mapleads/api/handler"
	"github.com/use-agent/mapleads/batch"
	"github.com/use-agent/mapleads/cache"
	"github.com/use-agent/mapleads/config"
	"github.com/use-agent/mapleads/emailfinder"
	"github.com/use-agent/mapleads/engine"
	"github.com/use-agent/mapleads/scraper"
	"github.com/use-agent/mapleads/storage"
	"github.com/use-agent/mapleads/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mapleads:", err)
		os.Exit(1)
	}
}

func run() error {
	// ── 1. Load and validate configuration ──────────────────────────
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// ── 2. Structured logging ───────────────────────────────────────
	logger := newLogger(cfg.Log)
	logger.Info("mapleads starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"headless", cfg.Browser.Headless,
		"cache", cfg.Cache.Backend,
	)

	// ── 3. Storage ──────────────────────────────────────────────────
	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	var resultCache batch.ResultCache
	if cfg.Cache.Enabled {
		var backend cache.Backend = db
		if cfg.Cache.Backend == "memory" {
			backend = cache.NewMemoryBackend(cfg.Cache.MaxEntries)
		}
		resultCache = cache.New(backend, logger)
	}

	// ── 4. Email discovery ──────────────────────────────────────────
	memory := engine.NewDomainMemory(cfg.Email.MemoryTTL)
	defer memory.Stop()
	finder := emailfinder.New(engine.NewHTTPEngine(cfg.Browser.AcceptLanguage), memory, cfg.Email, logger)

	var emails scraper.EmailFinder
	if cfg.Email.Enabled {
		emails = finder
	}

	// ── 5. Browser session ──────────────────────────────────────────
	session, err := scraper.NewRodSession(cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer session.Close()

	env := scraper.Env{
		Logger: logger,
		Pacer:  scraper.NewPacer(rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())), nil),
	}
	searcher := scraper.NewSearcher(session, env, cfg.Scraper, cfg.Selectors, emails)

	records := store.New(cfg.Scraper.MinPhoneDigits, logger)
	runner := batch.New(searcher, resultCache, records, batch.Options{
		CacheTTL:       cfg.Cache.TTL,
		MinPhoneDigits: cfg.Scraper.MinPhoneDigits,
		Sink:           db,
	}, logger)

	// ── 6. Router and HTTP server ───────────────────────────────────
	runCtx, stopRuns := context.WithCancel(context.Background())
	defer stopRuns()

	jobs := handler.NewBatchJobs(time.Hour)
	defer jobs.Stop()

	router := api.NewRouter(runCtx, api.Deps{
		Runner:  runner,
		Records: records,
		Finder:  finder,
		Jobs:    jobs,
		Probe:   session,
		Logger:  logger,
	}, cfg, time.Now())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serveErr:
		logger.Error("HTTP server error", "error", err)
	}

	// Running batches stop at the next item and keep what they have.
	stopRuns()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server forced shutdown", "error", err)
	} else {
		logger.Info("HTTP server drained gracefully")
	}

	if err := records.Flush(ctx, db); err != nil {
		logger.Error("flush on shutdown failed", "error", err)
	}

	logger.Info("mapleads stopped", "records", records.Len())
	return nil
}

// newLogger builds the process logger from cfg.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h)
}
