package models

// Batch job states.
const (
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
	BatchPartial    = "partial"
	BatchFailed     = "failed"
)

// BatchResponse is the immediate response for POST /api/v1/batch.
type BatchResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Total  int          `json:"total"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID      string      `json:"id"`
	Status  string      `json:"status"`
	Total   int         `json:"total"`
	Outcome *RunOutcome `json:"outcome,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// BatchJob tracks an in-progress batch run.
type BatchJob struct {
	ID        string
	Status    string
	Total     int
	Outcome   *RunOutcome
	Error     string
	CreatedAt int64 // unix timestamp
}
