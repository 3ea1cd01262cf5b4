package engine

import (
	"context"
	"time"
)

// Engine fetches a page over the network.
type Engine interface {
	// Name returns the engine identifier (e.g. "http").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration

	// MaxBody caps the bytes read from the response. Zero uses the engine
	// default.
	MaxBody int64
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	StatusCode int
	FinalURL   string
	EngineName string
}
