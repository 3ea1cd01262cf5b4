package scraper

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/use-agent/mapleads/config"
)

// fakeElement is a scripted Element.
type fakeElement struct {
	text  string
	attrs map[string]string

	// panel is shown by the session when the element is activated.
	panel *fakePanel

	// clickFails makes pointer clicks no-ops, as with an overlay on top.
	clickFails bool
	clickErr   error
	jsErr      error

	onScrollEnd func()

	clicks    int
	jsClicks  int
	pageDowns int

	session *fakeSession
}

func (e *fakeElement) Text() (string, error) { return e.text, nil }

func (e *fakeElement) Attribute(name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) ScrollIntoView() error { return nil }

func (e *fakeElement) Click() error {
	e.clicks++
	if e.session != nil {
		e.session.interactions++
	}
	if e.clickErr != nil {
		return e.clickErr
	}
	if !e.clickFails && e.session != nil && e.panel != nil {
		e.session.panel = e.panel
	}
	return nil
}

func (e *fakeElement) ActivateJS() error {
	e.jsClicks++
	if e.jsErr != nil {
		return e.jsErr
	}
	if e.session != nil {
		e.session.interactions++
		if e.panel != nil {
			e.session.panel = e.panel
		}
	}
	return nil
}

func (e *fakeElement) PageDown(n int) error {
	e.pageDowns += n
	return nil
}

func (e *fakeElement) ScrollToEnd() error {
	if e.onScrollEnd != nil {
		e.onScrollEnd()
	}
	return nil
}

// fakePanel is the detail panel content for one business.
type fakePanel struct {
	url string
	els map[string][]Element
}

// fakeSession serves elements from static maps, dynamic callbacks and the
// currently open panel.
type fakeSession struct {
	static  map[string][]Element
	dynamic map[string]func() []Element
	panel   *fakePanel

	missing map[string]bool
	url     string
	onEnd   func()
	navErr  error

	navigated    []string
	interactions int
	screenshots  []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		static:  map[string][]Element{},
		dynamic: map[string]func() []Element{},
		missing: map[string]bool{},
	}
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.interactions++
	s.navigated = append(s.navigated, url)
	s.url = url
	return s.navErr
}

func (s *fakeSession) CurrentURL(ctx context.Context) (string, error) {
	if s.panel != nil && s.panel.url != "" {
		return s.panel.url, nil
	}
	return s.url, nil
}

func (s *fakeSession) Elements(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f, ok := s.dynamic[selector]; ok {
		return f(), nil
	}
	if s.panel != nil {
		if els, ok := s.panel.els[selector]; ok {
			return els, nil
		}
	}
	return s.static[selector], nil
}

func (s *fakeSession) WaitElement(ctx context.Context, timeout time.Duration, selector string) bool {
	return !s.missing[selector]
}

func (s *fakeSession) WaitURL(ctx context.Context, timeout time.Duration, pred func(string) bool) bool {
	u, _ := s.CurrentURL(ctx)
	return pred(u)
}

func (s *fakeSession) PressEnd(ctx context.Context) error {
	s.interactions++
	if s.onEnd != nil {
		s.onEnd()
	}
	return nil
}

func (s *fakeSession) Screenshot(ctx context.Context, name string) error {
	s.screenshots = append(s.screenshots, name)
	return nil
}

func (s *fakeSession) Close() error { return nil }

// fakeFinder records website lookups.
type fakeFinder struct {
	email string
	calls []string
}

func (f *fakeFinder) Find(ctx context.Context, rawURL string) (string, bool) {
	f.calls = append(f.calls, rawURL)
	return f.email, f.email != ""
}

func testEnv() Env {
	noSleep := func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return Env{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Pacer:  NewPacer(rand.New(rand.NewPCG(1, 2)), noSleep),
	}
}

func testConfig() *config.Config {
	return config.Load()
}

// items builds n plain feed items.
func items(n int) []Element {
	out := make([]Element, n)
	for i := range out {
		out[i] = &fakeElement{text: "item"}
	}
	return out
}
