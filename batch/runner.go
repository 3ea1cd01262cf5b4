package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/mapleads/models"
	"github.com/use-agent/mapleads/scraper"
	"github.com/use-agent/mapleads/store"
)

// ErrBusy is returned by Run while another run holds the browser session.
var ErrBusy = errors.New("batch: session busy")

// Searcher runs a single query against the browser session.
type Searcher interface {
	Search(ctx context.Context, job models.SearchJob, sink func(*models.BusinessRecord)) (scraper.SearchResult, error)
}

// ResultCache stores the records of past queries.
type ResultCache interface {
	Get(ctx context.Context, category, location string, maxAge time.Duration) ([]models.BusinessRecord, bool)
	Set(ctx context.Context, category, location string, recs []models.BusinessRecord) error
}

// Options tunes a Runner.
type Options struct {
	// CacheTTL is the maximum age of a cached query. Zero disables lookups.
	CacheTTL time.Duration

	MinPhoneDigits int

	// Sink receives the accumulated records when the session is lost.
	// Nil disables the flush.
	Sink store.RecordSink
}

// flushTimeout bounds the flush that follows a lost session.
const flushTimeout = 30 * time.Second

// Runner executes search jobs strictly one after another on a single
// session, serving repeated queries from the cache.
type Runner struct {
	searcher Searcher
	cache    ResultCache
	store    *store.RecordStore
	opts     Options
	logger   *slog.Logger

	mu   sync.Mutex
	busy atomic.Bool
}

// New creates a Runner. A nil cache disables caching.
func New(searcher Searcher, cache ResultCache, records *store.RecordStore, opts Options, logger *slog.Logger) *Runner {
	if opts.MinPhoneDigits <= 0 {
		opts.MinPhoneDigits = models.MinPhoneDigits
	}
	return &Runner{
		searcher: searcher,
		cache:    cache,
		store:    records,
		opts:     opts,
		logger:   logger,
	}
}

// Busy reports whether a run is in progress.
func (r *Runner) Busy() bool {
	return r.busy.Load()
}

// Store returns the record store runs accumulate into.
func (r *Runner) Store() *store.RecordStore {
	return r.store
}

// Run executes jobs in submission order and returns per-job results plus a
// summary of the records accepted during this run.
//
// If ctx is cancelled the run stops and the outcome is marked partial, with
// a nil error. If the session is lost the partial outcome is returned along
// with the error. ErrBusy is returned without doing any work when another
// run is active.
func (r *Runner) Run(ctx context.Context, jobs []models.SearchJob) (*models.RunOutcome, error) {
	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			return nil, err
		}
	}
	if !r.mu.TryLock() {
		return nil, ErrBusy
	}
	defer r.mu.Unlock()
	r.busy.Store(true)
	defer r.busy.Store(false)

	start := time.Now()
	out := &models.RunOutcome{Results: make([]models.JobResult, 0, len(jobs))}
	var accepted []models.BusinessRecord

	for i, job := range jobs {
		if ctx.Err() != nil {
			out.Partial = true
			break
		}
		r.logger.Info("job started", "index", i+1, "of", len(jobs), "job", job.Label())

		res, recs, err := r.runJob(ctx, job)
		out.Results = append(out.Results, res)
		accepted = append(accepted, recs...)
		if err != nil {
			out.Partial = true
			if ctx.Err() != nil {
				r.logger.Warn("run cancelled", "job", job.Label(), "completed", i)
				break
			}
			out.Summary = store.Summarize(accepted, r.opts.MinPhoneDigits)
			r.logger.Error("run aborted", "job", job.Label(), "error", err)
			if errors.Is(err, scraper.ErrSessionLost) {
				r.flush(ctx)
			}
			return out, err
		}
	}

	out.Summary = store.Summarize(accepted, r.opts.MinPhoneDigits)
	r.logger.Info("run finished",
		"jobs", len(out.Results),
		"records", out.Summary.Total,
		"partial", out.Partial,
		"duration", time.Since(start),
	)
	return out, nil
}

// flush persists everything the store holds. It outlives ctx so records
// survive a run whose caller is already gone.
func (r *Runner) flush(ctx context.Context) {
	if r.opts.Sink == nil {
		return
	}
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if err := r.store.Flush(fctx, r.opts.Sink); err != nil {
		r.logger.Error("flush after session loss failed", "error", err)
	}
}

// runJob serves job from the cache or the browser. It returns the records
// the store accepted.
func (r *Runner) runJob(ctx context.Context, job models.SearchJob) (models.JobResult, []models.BusinessRecord, error) {
	label := job.Label()
	log := r.logger.With("job", label)

	if r.cache != nil {
		if recs, ok := r.cache.Get(ctx, job.Category, job.Location, r.opts.CacheTTL); ok {
			res := models.JobResult{Job: job, FromCache: true, Loaded: len(recs), Extracted: len(recs)}
			kept := r.addAll(recs, label)
			res.Accepted = len(kept)
			log.Info("served from cache", "records", len(recs), "accepted", res.Accepted)
			return res, kept, nil
		}
	}

	var extracted, kept []models.BusinessRecord
	sr, err := r.searcher.Search(ctx, job, func(rec *models.BusinessRecord) {
		extracted = append(extracted, *rec)
		kept = append(kept, r.addAll([]models.BusinessRecord{*rec}, label)...)
	})
	res := models.JobResult{
		Job:       job,
		Loaded:    sr.Loaded,
		Extracted: sr.Extracted,
		Skipped:   sr.Skipped,
		Accepted:  len(kept),
		Exhausted: sr.Exhausted,
	}
	if err != nil {
		res.Error = err.Error()
		return res, kept, err
	}

	if r.cache != nil && len(extracted) > 0 {
		if err := r.cache.Set(ctx, job.Category, job.Location, extracted); err != nil {
			log.Warn("cache write failed", "error", err)
		}
	}

	summary := store.Summarize(extracted, r.opts.MinPhoneDigits)
	log.Info("job finished",
		"loaded", res.Loaded,
		"extracted", res.Extracted,
		"skipped", res.Skipped,
		"accepted", res.Accepted,
		"exhausted", res.Exhausted,
		"with_phone", summary.WithValidPhone,
		"with_email", summary.WithValidEmail,
		"with_website", summary.WithValidWebsite,
		"duration", sr.Duration,
	)
	return res, kept, nil
}

// addAll adds recs under label and returns the accepted copies.
func (r *Runner) addAll(recs []models.BusinessRecord, label string) []models.BusinessRecord {
	var kept []models.BusinessRecord
	for _, rec := range recs {
		if r.store.Add(rec, label) {
			rec.SearchGroup = label
			kept = append(kept, rec)
		}
	}
	return kept
}
