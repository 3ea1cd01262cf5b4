package models

// SearchResponse is the response for POST /api/v1/search.
type SearchResponse struct {
	Success bool             `json:"success"`
	Result  *JobResult       `json:"result,omitempty"`
	Records []BusinessRecord `json:"records"`
	Summary *Summary         `json:"summary,omitempty"`
	Partial bool             `json:"partial,omitempty"`
	Error   *ErrorDetail     `json:"error,omitempty"`
}

// RecordsResponse is the response for GET /api/v1/records.
type RecordsResponse struct {
	Total   int              `json:"total"`
	Records []BusinessRecord `json:"records"`
}

// EmailResponse is the response for POST /api/v1/email.
type EmailResponse struct {
	Success bool         `json:"success"`
	URL     string       `json:"url"`
	Email   string       `json:"email,omitempty"`
	Found   bool         `json:"found"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorResponse wraps a bare error for middleware aborts.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Busy    bool   `json:"busy"`
	Records int    `json:"records"`
	Version string `json:"version"`
}

// Link represents a hyperlink extracted from a page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// LinksResult separates extracted links into internal and external groups.
type LinksResult struct {
	Internal []Link `json:"internal"`
	External []Link `json:"external"`
}
