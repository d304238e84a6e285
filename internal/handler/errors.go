package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"agritrace/internal/service"
	"agritrace/internal/util"

	"github.com/gin-gonic/gin"
)

// statusOf maps service errors onto HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error response for err. Server errors are logged and
// answered with the generic fallback message.
func fail(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error(fallback, "error", err, "route", c.FullPath())
		util.Error(c, status, fallback)
		return
	}
	util.Error(c, status, err.Error())
}

// bindJSON decodes the body into v and answers 400 on malformed JSON.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
