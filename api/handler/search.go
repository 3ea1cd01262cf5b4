package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mapleads/batch"
	"github.com/use-agent/mapleads/models"
	"github.com/use-agent/mapleads/store"
)

// Search returns a handler for POST /api/v1/search.
//
// The job runs synchronously on the shared session; a concurrent request gets
// 409. The response carries every stored record of the job's group, so a
// cached query answers with the same records as the first run.
func Search(runner *batch.Runner, records *store.RecordStore, timeout time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
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

		out, err := runner.Run(ctx, []models.SearchJob{req.SearchJob})
		resp := models.SearchResponse{
			Records: records.Group(req.Label()),
		}
		if resp.Records == nil {
			resp.Records = []models.BusinessRecord{}
		}
		if out != nil {
			if len(out.Results) > 0 {
				resp.Result = &out.Results[0]
			}
			resp.Summary = &out.Summary
			resp.Partial = out.Partial
		}
		if err == nil && out != nil && out.Partial && ctx.Err() != nil {
			err = ctx.Err()
		}

		if err != nil {
			status, detail := classify(err)
			logger.Warn("search failed", "job", req.Label(), "status", status, "error", err)
			resp.Error = detail
			c.JSON(status, resp)
			return
		}

		resp.Success = true
		c.JSON(http.StatusOK, resp)
	}
}
