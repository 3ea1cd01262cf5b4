package scraper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/mapleads/config"
	"github.com/use-agent/mapleads/models"
)

// Pause after scrolling an item into view.
const (
	settlePauseMin = 500 * time.Millisecond
	settlePauseMax = time.Second
)

// errPanelMismatch means every attempt opened a panel whose title did not
// match the list item.
var errPanelMismatch = errors.New("panel title never matched list item")

// EmailFinder looks up a contact address on a business website.
type EmailFinder interface {
	Find(ctx context.Context, rawURL string) (string, bool)
}

// DetailExtractor opens a feed item's detail panel, verifies it belongs to
// that item and reads the record fields.
type DetailExtractor struct {
	session Session
	env     Env
	cfg     config.ScraperConfig
	sel     config.SelectorsConfig
	emails  EmailFinder
	now     func() time.Time

	address  []FieldStrategy
	phone    []FieldStrategy
	website  []FieldStrategy
	mailto   []FieldStrategy
	rating   []FieldStrategy
	reviews  []FieldStrategy
	category []FieldStrategy
}

// NewDetailExtractor builds an extractor. A nil emails disables website
// email discovery.
func NewDetailExtractor(session Session, env Env, cfg config.ScraperConfig, sel config.SelectorsConfig, emails EmailFinder) *DetailExtractor {
	return &DetailExtractor{
		session:  session,
		env:      env,
		cfg:      cfg,
		sel:      sel,
		emails:   emails,
		now:      time.Now,
		address:  strategies("address", sel.Address, "aria-label", parseAddress),
		phone:    phoneStrategies(sel.Phone, phoneParser(cfg.MinPhoneDigits)),
		website:  strategies("website", sel.Website, "href", nil),
		mailto:   strategies("mailto", sel.Mailto, "href", parseMailto),
		rating:   ratingStrategies(sel.Rating),
		reviews:  strategies("reviews", sel.Reviews, "", parseReviews),
		category: strategies("category", sel.Category, "", nil),
	}
}

// phoneStrategies reads the aria-label of phone buttons and the text of
// anything else.
func phoneStrategies(selectors []string, parse func(string) (string, bool)) []FieldStrategy {
	out := strategies("phone", selectors, "", parse)
	for i := range out {
		if strings.HasPrefix(out[i].Selector, "button") {
			out[i].Attr = "aria-label"
		}
	}
	return out
}

// ratingStrategies reads the star widget's aria-label first and plain text
// for the fallbacks.
func ratingStrategies(selectors []string) []FieldStrategy {
	out := strategies("rating", selectors, "", parseRating)
	if len(out) > 0 {
		out[0].Attr = "aria-label"
	}
	return out
}

// Extract returns the record behind item, or nil when the item yields no
// record. The error is non-nil only when the search must stop.
func (d *DetailExtractor) Extract(ctx context.Context, item Element, index int) (*models.BusinessRecord, error) {
	log := d.env.Logger.With("index", index)

	text, err := item.Text()
	if err != nil {
		if fatal(ctx, err) {
			return nil, err
		}
		d.unexpected(ctx, index, fmt.Errorf("read item label: %w", err))
		return nil, nil
	}
	expected := strings.ToLower(firstLine(text))

	if err := item.ScrollIntoView(); fatal(ctx, err) {
		return nil, err
	}
	if err := d.env.Pacer.Pause(ctx, settlePauseMin, settlePauseMax); err != nil {
		return nil, err
	}

	title, err := d.open(ctx, item, expected)
	switch {
	case fatal(ctx, err):
		return nil, err
	case errors.Is(err, errPanelMismatch):
		log.Warn("could not open matching panel", "expected", expected)
		return nil, nil
	case err != nil:
		d.unexpected(ctx, index, err)
		return nil, nil
	}

	d.session.WaitURL(ctx, d.cfg.URLWaitTimeout, func(u string) bool {
		return strings.Contains(u, "!3d") || strings.Contains(u, "/place/")
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := d.read(ctx, title)
	if err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		log.Warn("discarding record", "error", err)
		return nil, nil
	}
	return rec, nil
}

// open activates item until the panel title matches expected. The first
// attempt uses a pointer click, later attempts activate from script.
func (d *DetailExtractor) open(ctx context.Context, item Element, expected string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.VerifyAttempts; attempt++ {
		var err error
		if attempt == 1 {
			err = item.Click()
		} else {
			err = item.ActivateJS()
		}
		if err != nil {
			if fatal(ctx, err) {
				return "", err
			}
			d.env.Logger.Warn("activate item failed", "attempt", attempt, "error", err)
			lastErr = err
			continue
		}
		lastErr = nil

		if err := d.env.Pacer.Pause(ctx, d.cfg.PanelPauseMin, d.cfg.PanelPauseMax); err != nil {
			return "", err
		}

		title, err := d.readTitle(ctx)
		if err != nil {
			return "", err
		}
		if titleMatches(expected, title) {
			return title, nil
		}
		if title != "" {
			d.env.Logger.Warn("panel title mismatch",
				"attempt", attempt, "panel", title, "expected", expected)
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("activate item: %w", lastErr)
	}
	return "", errPanelMismatch
}

// read pulls every field from the open panel. Misses leave the field
// empty; only fatal session errors are returned.
func (d *DetailExtractor) read(ctx context.Context, name string) (*models.BusinessRecord, error) {
	f := models.RecordFields{Name: name}

	var err error
	targets := []struct {
		list []FieldStrategy
		dst  *string
	}{
		{d.address, &f.Address},
		{d.phone, &f.Phone},
		{d.website, &f.Website},
		{d.category, &f.Category},
	}
	for _, t := range targets {
		if *t.dst, _, err = readField(ctx, d.session, t.list); err != nil {
			return nil, err
		}
	}

	if v, ok, err := readField(ctx, d.session, d.rating); err != nil {
		return nil, err
	} else if ok {
		if r, perr := strconv.ParseFloat(v, 64); perr == nil {
			f.Rating = &r
		}
	}
	if v, ok, err := readField(ctx, d.session, d.reviews); err != nil {
		return nil, err
	} else if ok {
		if n, perr := strconv.Atoi(v); perr == nil {
			f.ReviewCount = &n
		}
	}

	if f.Email, err = d.email(ctx, f.Website); err != nil {
		return nil, err
	}

	if u, err := d.session.CurrentURL(ctx); err != nil {
		if fatal(ctx, err) {
			return nil, err
		}
	} else if c, ok := parseCoordinates(u); ok {
		f.Location = c
	}

	return models.NewBusinessRecord(f, d.now()), nil
}

// email tries a mailto link, then the visible panel text, then the
// business website when nothing was found locally.
func (d *DetailExtractor) email(ctx context.Context, website string) (string, error) {
	if v, ok, err := readField(ctx, d.session, d.mailto); err != nil || ok {
		return v, err
	}

	bodies, err := d.session.Elements(ctx, "body")
	if err != nil && fatal(ctx, err) {
		return "", err
	}
	if len(bodies) > 0 {
		if text, err := bodies[0].Text(); err == nil {
			if v, ok := findTextEmail(text); ok {
				return v, nil
			}
		}
	}

	if d.emails == nil || website == "" || models.SocialNetwork(website) != "" {
		return "", nil
	}
	d.env.Logger.Info("searching website for email", "website", website)
	if v, ok := d.emails.Find(ctx, website); ok {
		d.env.Logger.Info("email found on website", "website", website, "email", v)
		return v, nil
	}
	return "", ctx.Err()
}

// unexpected logs err and captures the page for later diagnosis.
func (d *DetailExtractor) unexpected(ctx context.Context, index int, err error) {
	d.env.Logger.Error("extraction failed", "index", index, "error", err)
	if shotErr := d.session.Screenshot(ctx, fmt.Sprintf("error_extraction_%d", index)); shotErr != nil {
		d.env.Logger.Warn("screenshot failed", "error", shotErr)
	}
}
