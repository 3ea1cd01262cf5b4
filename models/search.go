package models

import (
	"fmt"
	"strings"
)

// SearchJob is one (category, location) query submitted to a run.
type SearchJob struct {
	Category   string `json:"category" binding:"required"`
	Location   string `json:"location" binding:"required"`
	MaxResults int    `json:"max_results" binding:"required,min=1"`
}

// Validate rejects jobs the pipeline must never see.
func (j SearchJob) Validate() error {
	if strings.TrimSpace(j.Category) == "" {
		return NewScrapeError(ErrCodeInvalidInput, "category is required", nil)
	}
	if strings.TrimSpace(j.Location) == "" {
		return NewScrapeError(ErrCodeInvalidInput, "location is required", nil)
	}
	if j.MaxResults < 1 {
		return NewScrapeError(ErrCodeInvalidInput,
			fmt.Sprintf("max_results must be >= 1, got %d", j.MaxResults), nil)
	}
	return nil
}

// Query renders the free-text search typed into the map application,
// e.g. "restaurantes en Madrid".
func (j SearchJob) Query(connector string) string {
	if connector == "" {
		return strings.TrimSpace(j.Category) + " " + strings.TrimSpace(j.Location)
	}
	return strings.TrimSpace(j.Category) + " " + connector + " " + strings.TrimSpace(j.Location)
}

// Label is the search-group tag stamped on records produced by this job.
func (j SearchJob) Label() string {
	return strings.TrimSpace(j.Category) + "_" + strings.TrimSpace(j.Location)
}

// JobResult describes how a single job of a run went.
type JobResult struct {
	Job       SearchJob `json:"job"`
	FromCache bool      `json:"from_cache"`
	Loaded    int       `json:"loaded"`
	Extracted int       `json:"extracted"`
	Skipped   int       `json:"skipped"`
	Accepted  int       `json:"accepted"`
	Exhausted bool      `json:"exhausted"`
	Error     string    `json:"error,omitempty"`
}

// RunOutcome is the result of a batch run. Partial is set when the run was
// interrupted; Results then covers only the jobs that were attempted.
type RunOutcome struct {
	Results []JobResult `json:"results"`
	Summary Summary     `json:"summary"`
	Partial bool        `json:"partial"`
}
