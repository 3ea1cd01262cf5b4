package scraper

import (
	"context"
	"fmt"

	"github.com/use-agent/mapleads/config"
)

// Key presses per scroll gesture.
const (
	minPageDowns = 3
	maxPageDowns = 6
)

// ListLoader scrolls the results feed until it holds enough items or stops
// growing.
type ListLoader struct {
	session Session
	env     Env
	cfg     config.ScraperConfig
	sel     config.SelectorsConfig
}

// NewListLoader returns a loader driving session.
func NewListLoader(session Session, env Env, cfg config.ScraperConfig, sel config.SelectorsConfig) *ListLoader {
	return &ListLoader{session: session, env: env, cfg: cfg, sel: sel}
}

// Load scrolls until the feed holds at least target items, or until it
// stalls for StallThreshold polls and a forced End press brings nothing new.
// There is no cap on polls besides the stall rule; ctx bounds the total time.
func (l *ListLoader) Load(ctx context.Context, target int) (LoadResult, error) {
	log := l.env.Logger
	var res LoadResult

	if !l.session.WaitElement(ctx, l.cfg.FeedTimeout, l.sel.Feed) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		return res, ErrFeedNotFound
	}

	count, err := l.count(ctx)
	if fatal(ctx, err) {
		return res, err
	}

	stall := 0
	for count < target {
		res.Polls++
		if err := l.scroll(ctx); fatal(ctx, err) {
			return res, err
		}
		if err := l.env.Pacer.Pause(ctx, l.cfg.ScrollPauseMin, l.cfg.ScrollPauseMax); err != nil {
			return res, err
		}

		n, err := l.count(ctx)
		if fatal(ctx, err) {
			return res, err
		}
		if n > count {
			log.Debug("feed grew", "items", n, "target", target)
			count = n
			stall = 0
			continue
		}

		stall++
		if stall < l.cfg.StallThreshold {
			continue
		}

		log.Debug("feed stalled, forcing end of list", "items", count, "polls", res.Polls)
		if err := l.session.PressEnd(ctx); fatal(ctx, err) {
			return res, err
		}
		if err := l.env.Pacer.sleep(ctx, l.cfg.ForceEndPause); err != nil {
			return res, err
		}
		n, err = l.count(ctx)
		if fatal(ctx, err) {
			return res, err
		}
		if n > count {
			count = n
			stall = 0
			continue
		}
		res.Exhausted = true
		log.Info("feed exhausted", "items", count, "target", target, "polls", res.Polls)
		break
	}

	items, err := l.session.Elements(ctx, l.sel.FeedItem)
	if err != nil {
		return res, fmt.Errorf("collect feed items: %w", err)
	}
	if len(items) > target {
		items = items[:target]
	}
	res.Items = items
	return res, nil
}

// count returns the number of items currently in the feed.
func (l *ListLoader) count(ctx context.Context) (int, error) {
	items, err := l.session.Elements(ctx, l.sel.FeedItem)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// scroll performs one gesture on the feed container: a few PageDown
// presses, then a direct scroll to the bottom as backup.
func (l *ListLoader) scroll(ctx context.Context) error {
	feeds, err := l.session.Elements(ctx, l.sel.Feed)
	if err != nil {
		return err
	}
	if len(feeds) == 0 {
		return nil
	}
	feed := feeds[0]
	if err := feed.PageDown(l.env.Pacer.IntBetween(minPageDowns, maxPageDowns)); err != nil {
		l.env.Logger.Debug("page down gesture failed", "error", err)
	}
	if err := feed.ScrollToEnd(); err != nil {
		l.env.Logger.Debug("scroll to end failed", "error", err)
	}
	return nil
}
