package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/mapleads/models"
	"github.com/ysmood/gson"
)

// urlPollInterval is how often WaitURL re-reads the location.
const urlPollInterval = 200 * time.Millisecond

// consentButtons are the "accept all" buttons of the cookie consent
// interstitial, in the locales the session is likely to see.
var consentButtons = []string{
	"button[aria-label='Aceptar todo']",
	"button[aria-label='Accept all']",
	"form[action*='consent'] button",
}

// Navigate loads url and waits for the document to settle. A consent
// interstitial, if shown, is accepted.
func (s *RodSession) Navigate(ctx context.Context, url string) error {
	navCtx := ctx
	if s.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.cfg.NavigationTimeout)
		defer cancel()
	}
	p := s.page.Context(navCtx)

	if err := p.Navigate(url); err != nil {
		return s.categorizeError(ctx, err, "navigation to search URL failed")
	}
	if err := p.WaitLoad(); err != nil {
		s.logger.Debug("WaitLoad did not complete, proceeding with current DOM",
			"error", err,
		)
	}

	if loc := evalStringOrEmpty(p, `() => window.location.href`); strings.Contains(loc, "consent.") {
		s.acceptConsent(p)
	}
	return nil
}

// acceptConsent clicks the first consent button found and waits for the
// redirect back.
func (s *RodSession) acceptConsent(p *rod.Page) {
	for _, sel := range consentButtons {
		el, err := p.Timeout(2 * time.Second).Element(sel)
		if err != nil {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
			s.logger.Info("consent interstitial accepted", "selector", sel)
			_ = p.WaitLoad()
			return
		}
	}
	s.logger.Warn("consent interstitial shown but no button matched")
}

// CurrentURL returns window.location.href.
func (s *RodSession) CurrentURL(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => window.location.href`)
	if err != nil {
		return "", s.categorizeError(ctx, err, "failed to read location")
	}
	return res.Value.Str(), nil
}

// Elements returns all matches without waiting.
func (s *RodSession) Elements(ctx context.Context, selector string) ([]Element, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, s.categorizeError(ctx, err, fmt.Sprintf("query %q failed", selector))
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out, nil
}

// WaitElement waits up to timeout for selector to match.
func (s *RodSession) WaitElement(ctx context.Context, timeout time.Duration, selector string) bool {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := s.page.Context(wctx).Element(selector)
	return err == nil
}

// WaitURL polls the location until pred holds or timeout elapses.
func (s *RodSession) WaitURL(ctx context.Context, timeout time.Duration, pred func(string) bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if u, err := s.CurrentURL(ctx); err == nil && pred(u) {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		if Sleep(ctx, urlPollInterval) != nil {
			return false
		}
	}
}

// PressEnd sends the End key to the focused document.
func (s *RodSession) PressEnd(ctx context.Context) error {
	if err := s.page.Context(ctx).Keyboard.Type(input.End); err != nil {
		return s.categorizeError(ctx, err, "End key failed")
	}
	return nil
}

// Screenshot writes a PNG of the viewport to the configured directory.
func (s *RodSession) Screenshot(ctx context.Context, name string) error {
	if s.cfg.ScreenshotDir == "" {
		return nil
	}
	data, err := s.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return s.categorizeError(ctx, err, "screenshot failed")
	}
	file := filepath.Join(s.cfg.ScreenshotDir,
		fmt.Sprintf("%s_%s.png", name, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	s.logger.Info("screenshot saved", "file", file)
	return nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScrapeErrors. A dead browser
// is reported as ErrSessionLost so callers can stop immediately.
func (s *RodSession) categorizeError(ctx context.Context, err error, msg string) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case !s.Alive():
		return models.NewScrapeError(models.ErrCodeSessionLost, msg, errors.Join(ErrSessionLost, err))
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
