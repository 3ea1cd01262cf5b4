package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mapleads/batch"
	"github.com/use-agent/mapleads/models"
	"github.com/use-agent/mapleads/scraper"
)

// classify maps a run error to an HTTP status and API error detail.
func classify(err error) (int, *models.ErrorDetail) {
	var se *models.ScrapeError
	switch {
	case errors.Is(err, batch.ErrBusy):
		return http.StatusConflict, &models.ErrorDetail{
			Code:    models.ErrCodeSessionBusy,
			Message: "another search is using the browser session",
		}
	case errors.Is(err, scraper.ErrSessionLost):
		return http.StatusServiceUnavailable, &models.ErrorDetail{
			Code:    models.ErrCodeSessionLost,
			Message: "browser session lost",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, &models.ErrorDetail{
			Code:    models.ErrCodeTimeout,
			Message: "search timed out",
		}
	case errors.As(err, &se):
		status := http.StatusInternalServerError
		if se.Code == models.ErrCodeInvalidInput {
			status = http.StatusBadRequest
		}
		return status, se.ToDetail()
	}
	return http.StatusInternalServerError, &models.ErrorDetail{
		Code:    models.ErrCodeInternal,
		Message: err.Error(),
	}
}

func abortInvalid(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeInvalidInput,
			Message: err.Error(),
		},
	})
}
