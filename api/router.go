package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mapleads/api/handler"
	"github.com/use-agent/mapleads/api/middleware"
	"github.com/use-agent/mapleads/batch"
	"github.com/use-agent/mapleads/config"
	"github.com/use-agent/mapleads/store"
)

// Deps are the services the routes are served from.
type Deps struct {
	Runner  *batch.Runner
	Records *store.RecordStore
	Finder  handler.EmailFinder
	Jobs    *handler.BatchJobs
	Probe   handler.SessionProbe
	Logger  *slog.Logger
}

// NewRouter creates a configured Gin engine with all routes and middleware.
// Background batches and limiter cleanup stop when ctx is done.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health is outside auth so monitoring probes always work.
func NewRouter(ctx context.Context, d Deps, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(d.Runner, d.Records, d.Probe, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	// Searches
	protected.POST("/search", handler.Search(d.Runner, d.Records, cfg.Scraper.SearchTimeout, d.Logger))
	protected.POST("/batch", handler.PostBatch(ctx, d.Runner, d.Jobs, cfg.Webhook.Secret, d.Logger))
	protected.GET("/batch/:id", handler.GetBatch(d.Jobs))

	// Accumulated results
	protected.GET("/records", handler.Records(d.Records))
	protected.GET("/report", handler.Report(d.Records))

	// Email discovery: home page plus at most one contact hop.
	protected.POST("/email", handler.Email(d.Finder, 2*cfg.Email.Timeout+5*time.Second))

	return r
}
