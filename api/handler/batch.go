package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mapleads/batch"
	"github.com/use-agent/mapleads/models"
	"github.com/use-agent/mapleads/webhook"
)

// BatchJobs holds all in-flight and completed batch jobs. Jobs older than
// the retention window are expired by a background goroutine.
type BatchJobs struct {
	mu        sync.RWMutex
	jobs      map[string]*models.BatchJob
	retention time.Duration
	done      chan struct{}
	once      sync.Once
}

// NewBatchJobs creates a registry keeping finished jobs for retention.
func NewBatchJobs(retention time.Duration) *BatchJobs {
	b := &BatchJobs{
		jobs:      make(map[string]*models.BatchJob),
		retention: retention,
		done:      make(chan struct{}),
	}
	go b.cleanupLoop()
	return b
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (b *BatchJobs) Stop() {
	b.once.Do(func() { close(b.done) })
}

func (b *BatchJobs) add(job *models.BatchJob) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs[job.ID] = job
}

// Get returns a copy of the job with id.
func (b *BatchJobs) Get(id string) (models.BatchJob, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	job, ok := b.jobs[id]
	if !ok {
		return models.BatchJob{}, false
	}
	return *job, true
}

func (b *BatchJobs) finish(id, status string, outcome *models.RunOutcome, errMsg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if job, ok := b.jobs[id]; ok {
		job.Status = status
		job.Outcome = outcome
		job.Error = errMsg
	}
}

func (b *BatchJobs) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.expire(time.Now())
		case <-b.done:
			return
		}
	}
}

func (b *BatchJobs) expire(now time.Time) {
	cutoff := now.Add(-b.retention).Unix()
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, job := range b.jobs {
		if job.Status != models.BatchProcessing && job.CreatedAt < cutoff {
			delete(b.jobs, id)
		}
	}
}

// PostBatch returns a handler for POST /api/v1/batch.
// It validates the request, registers a batch job, and runs it in the
// background under ctx, which is cancelled on shutdown.
func PostBatch(ctx context.Context, runner *batch.Runner, jobs *BatchJobs, webhookSecret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortInvalid(c, err)
			return
		}
		for _, j := range req.Jobs {
			if err := j.Validate(); err != nil {
				abortInvalid(c, err)
				return
			}
		}

		if runner.Busy() {
			status, detail := classify(batch.ErrBusy)
			c.JSON(status, models.BatchResponse{Status: models.BatchFailed, Total: len(req.Jobs), Error: detail})
			return
		}

		job := &models.BatchJob{
			ID:        "batch-" + randomID(),
			Status:    models.BatchProcessing,
			Total:     len(req.Jobs),
			CreatedAt: time.Now().Unix(),
		}
		jobs.add(job)

		go runBatch(ctx, runner, jobs, job.ID, req, webhookSecret, logger)

		c.JSON(http.StatusAccepted, models.BatchResponse{
			ID:     job.ID,
			Status: models.BatchProcessing,
			Total:  job.Total,
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch(jobs *BatchJobs) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := jobs.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeNotFound,
					Message: "batch job not found",
				},
			})
			return
		}

		c.JSON(http.StatusOK, models.BatchStatusResponse{
			ID:      job.ID,
			Status:  job.Status,
			Total:   job.Total,
			Outcome: job.Outcome,
			Error:   job.Error,
		})
	}
}

// runBatch executes a registered job and records its final state.
func runBatch(ctx context.Context, runner *batch.Runner, jobs *BatchJobs, id string, req models.BatchRequest, secret string, logger *slog.Logger) {
	out, err := runner.Run(ctx, req.Jobs)

	status := models.BatchCompleted
	errMsg := ""
	switch {
	case err != nil && (out == nil || len(out.Results) == 0):
		status = models.BatchFailed
		errMsg = err.Error()
	case err != nil:
		status = models.BatchPartial
		errMsg = err.Error()
	case out.Partial:
		status = models.BatchPartial
	}
	jobs.finish(id, status, out, errMsg)

	logger.Info("batch job finished", "id", id, "status", status, "total", len(req.Jobs), "error", errMsg)

	if req.WebhookURL != "" {
		webhook.DeliverAsync(logger, req.WebhookURL, secret, &webhook.Event{
			Type:      webhook.EventBatchCompleted,
			JobID:     id,
			Timestamp: time.Now().Unix(),
			Data: models.BatchStatusResponse{
				ID:      id,
				Status:  status,
				Total:   len(req.Jobs),
				Outcome: out,
				Error:   errMsg,
			},
		})
	}
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
