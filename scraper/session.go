package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrSessionLost means the browser session died and no further
	// interaction is possible.
	ErrSessionLost = errors.New("browser session lost")

	// ErrFeedNotFound means the results feed never appeared.
	ErrFeedNotFound = errors.New("results feed not found")
)

// Session is the browser capability set the extraction pipeline drives.
// Implementations are not safe for concurrent use; one search owns the
// session at a time.
type Session interface {
	// Navigate loads url in the session's single page.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the page's current location.
	CurrentURL(ctx context.Context) (string, error)

	// Elements returns every element matching selector, in document order.
	Elements(ctx context.Context, selector string) ([]Element, error)

	// WaitElement reports whether selector matched within timeout.
	WaitElement(ctx context.Context, timeout time.Duration, selector string) bool

	// WaitURL reports whether the current URL satisfied pred within timeout.
	WaitURL(ctx context.Context, timeout time.Duration, pred func(string) bool) bool

	// PressEnd sends the End key to the page.
	PressEnd(ctx context.Context) error

	// Screenshot stores a diagnostic capture under name.
	Screenshot(ctx context.Context, name string) error

	Close() error
}

// Element is a handle to a DOM node. Handles may go stale when the page
// re-renders; callers treat errors as misses.
type Element interface {
	Text() (string, error)

	// Attribute returns the attribute value and whether it was present.
	Attribute(name string) (string, bool, error)

	ScrollIntoView() error

	// Click performs a real pointer click.
	Click() error

	// ActivateJS triggers the element's click handler from script, for
	// elements a pointer click cannot reach.
	ActivateJS() error

	// PageDown sends n PageDown presses with the element focused.
	PageDown(n int) error

	// ScrollToEnd sets the element's scroll offset to its full height.
	ScrollToEnd() error
}

// Env carries the collaborators shared by every pipeline stage.
type Env struct {
	Logger *slog.Logger
	Pacer  *Pacer
}

// fatal reports whether err must abort the current search.
func fatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return err != nil && errors.Is(err, ErrSessionLost)
}
