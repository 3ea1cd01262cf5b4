package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mapleads/batch"
	"github.com/use-agent/mapleads/models"
	"github.com/use-agent/mapleads/store"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// SessionProbe reports whether the browser session is still usable.
type SessionProbe interface {
	Alive() bool
}

// Health returns a handler for GET /api/v1/health.
//
// Status degrades when the browser session has died. A nil probe is treated
// as alive.
func Health(runner *batch.Runner, records *store.RecordStore, probe SessionProbe, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		if probe != nil && !probe.Alive() {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Busy:    runner.Busy(),
			Records: records.Len(),
			Version: Version,
		})
	}
}
