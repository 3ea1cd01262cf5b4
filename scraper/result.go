package scraper

import (
	"time"

	"github.com/use-agent/mapleads/models"
)

// SearchResult holds the counters of a single search. Records themselves
// go to the sink as they are produced.
type SearchResult struct {
	Job       models.SearchJob
	Loaded    int
	Extracted int
	Skipped   int
	Exhausted bool
	Duration  time.Duration
}

// LoadResult is the outcome of ListLoader.Load.
type LoadResult struct {
	// Items are the first min(target, count) handles in feed order.
	Items []Element

	// Exhausted is set when the feed stopped growing before target.
	Exhausted bool

	// Polls is the number of scroll iterations performed.
	Polls int
}
