package middleware

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"agritrace/internal/metrics"
	"agritrace/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// Audit records every request made by an authenticated caller.
func Audit(trail *service.AuditTrail, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		actor := CurrentActor(c)
		if !actor.Authenticated() {
			return
		}
		path := c.Request.URL.Path
		action := c.Request.Method + " " + path
		if route := c.FullPath(); route != "" && route != path {
			action += " (" + route + ")"
		}
		ev := service.AuditEvent{
			UserID:    actor.ID,
			Method:    c.Request.Method,
			Path:      path,
			Action:    action,
			Status:    c.Writer.Status(),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		// the response is already written; a canceled client must not
		// drop the record
		if err := trail.Record(context.WithoutCancel(c.Request.Context()), ev); err != nil {
			logger.Warn("audit record failed", "error", err, "user", actor.ID)
		}
	}
}

// RequestLogger emits one log record per request and observes the
// latency histogram.
func RequestLogger(logger *slog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if m != nil {
			m.RequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(latency.Seconds())
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", latency,
			"request_id", reqID,
			"ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", strings.Join(c.Errors.Errors(), "; "))
		}
		logger.Log(c.Request.Context(), level, "request", attrs...)
	}
}
