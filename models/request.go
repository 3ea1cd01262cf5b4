package models

// SearchRequest is the payload for POST /api/v1/search.
type SearchRequest struct {
	SearchJob
}

// BatchRequest is the payload for POST /api/v1/batch.
type BatchRequest struct {
	// Jobs run strictly in submission order. Required.
	Jobs []SearchJob `json:"jobs" binding:"required,min=1,max=50,dive"`

	// WebhookURL, if set, receives a "batch.completed" event when the run ends.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// EmailRequest is the payload for POST /api/v1/email.
type EmailRequest struct {
	// URL is the website to search for a contact address. A missing scheme
	// is tolerated.
	URL string `json:"url" binding:"required"`
}
