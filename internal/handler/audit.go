package handler

import (
	"log/slog"
	"strconv"

	"agritrace/internal/service"
	"agritrace/internal/util"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	Trail           *service.AuditTrail
	DefaultPageSize int
	Logger          *slog.Logger
}

func NewAuditHandler(trail *service.AuditTrail, pageSize int, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{Trail: trail, DefaultPageSize: pageSize, Logger: logger}
}

// ListLogs pages through the audit log, newest first. ?user_id= narrows
// it to one user.
func (h *AuditHandler) ListLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.DefaultPageSize)))

	items, total, err := h.Trail.List(c.Request.Context(), c.Query("user_id"), page, size)
	if err != nil {
		fail(c, h.Logger, err, "failed to fetch audit log")
		return
	}
	util.Success(c, util.Response{"items": items, "total": total})
}
