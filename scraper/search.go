package scraper

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/use-agent/mapleads/config"
	"github.com/use-agent/mapleads/models"
)

// Searcher runs one query end to end: navigate, load the feed, extract
// each item.
type Searcher struct {
	session   Session
	env       Env
	cfg       config.ScraperConfig
	loader    *ListLoader
	extractor *DetailExtractor
}

// NewSearcher wires a loader and an extractor onto session.
func NewSearcher(session Session, env Env, cfg config.ScraperConfig, sel config.SelectorsConfig, emails EmailFinder) *Searcher {
	return &Searcher{
		session:   session,
		env:       env,
		cfg:       cfg,
		loader:    NewListLoader(session, env, cfg, sel),
		extractor: NewDetailExtractor(session, env, cfg, sel, emails),
	}
}

// SearchURL returns the results page address for job.
func (s *Searcher) SearchURL(job models.SearchJob) string {
	return s.cfg.SearchBaseURL + url.QueryEscape(job.Query(s.cfg.QueryConnector))
}

// Search runs job and hands each accepted record to sink as soon as it is
// read, tagged with the job label. A missing feed or a failed navigation
// yields an empty result. The error is non-nil only on cancellation or a
// lost session; the result then holds the counts reached so far.
func (s *Searcher) Search(ctx context.Context, job models.SearchJob, sink func(*models.BusinessRecord)) (SearchResult, error) {
	start := time.Now()
	res := SearchResult{Job: job}
	log := s.env.Logger.With("job", job.Label())

	target := s.SearchURL(job)
	log.Info("search started", "url", target, "max_results", job.MaxResults)

	if err := s.session.Navigate(ctx, target); err != nil {
		if fatal(ctx, err) {
			return s.finish(res, start), err
		}
		log.Error("navigation failed", "error", err)
		return s.finish(res, start), nil
	}
	if err := s.env.Pacer.Pause(ctx, s.cfg.SearchPauseMin, s.cfg.SearchPauseMax); err != nil {
		return s.finish(res, start), err
	}

	loaded, err := s.loader.Load(ctx, job.MaxResults)
	res.Exhausted = loaded.Exhausted
	switch {
	case errors.Is(err, ErrFeedNotFound):
		log.Warn("results feed not found")
		return s.finish(res, start), nil
	case err != nil:
		return s.finish(res, start), err
	}
	res.Loaded = len(loaded.Items)
	log.Info("feed loaded", "items", res.Loaded, "exhausted", res.Exhausted, "polls", loaded.Polls)

	for i, item := range loaded.Items {
		if i > 0 {
			if err := s.env.Pacer.Pause(ctx, s.cfg.ItemPauseMin, s.cfg.ItemPauseMax); err != nil {
				return s.finish(res, start), err
			}
		}
		rec, err := s.extractor.Extract(ctx, item, i)
		if err != nil {
			log.Error("search aborted", "index", i, "error", err)
			return s.finish(res, start), err
		}
		if rec == nil {
			res.Skipped++
			continue
		}
		rec.SearchGroup = job.Label()
		res.Extracted++
		log.Info("record extracted", "index", i, "name", rec.Name)
		sink(rec)
	}

	log.Info("search finished", "extracted", res.Extracted, "skipped", res.Skipped)
	return s.finish(res, start), nil
}

func (s *Searcher) finish(res SearchResult, start time.Time) SearchResult {
	res.Duration = time.Since(start)
	return res
}
