package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mapleads/models"
	"github.com/use-agent/mapleads/store"
)

// Records returns a handler for GET /api/v1/records. The optional group
// query parameter filters by search group.
func Records(records *store.RecordStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var recs []models.BusinessRecord
		if group := c.Query("group"); group != "" {
			recs = records.Group(group)
		} else {
			recs = records.Records()
		}
		if recs == nil {
			recs = []models.BusinessRecord{}
		}
		c.JSON(http.StatusOK, models.RecordsResponse{Total: len(recs), Records: recs})
	}
}

// Report returns a handler for GET /api/v1/report.
func Report(records *store.RecordStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, records.Report())
	}
}

// EmailFinder looks up a contact address for a website.
type EmailFinder interface {
	Find(ctx context.Context, rawURL string) (string, bool)
}

// Email returns a handler for POST /api/v1/email.
func Email(finder EmailFinder, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.EmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortInvalid(c, err)
			return
		}

		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		email, found := finder.Find(ctx, req.URL)
		c.JSON(http.StatusOK, models.EmailResponse{
			Success: true,
			URL:     req.URL,
			Email:   email,
			Found:   found,
		})
	}
}
