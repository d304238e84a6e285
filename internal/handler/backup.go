package handler

import (
	"fmt"
	"log/slog"

	"agritrace/internal/middleware"
	"agritrace/internal/service"
	"agritrace/internal/util"

	"github.com/gin-gonic/gin"
)

// BackupHandler manages encrypted store snapshots.
type BackupHandler struct {
	Backups *service.Backups
	Logger  *slog.Logger
}

func NewBackupHandler(b *service.Backups, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{Backups: b, Logger: logger}
}

func (h *BackupHandler) CreateBackup(c *gin.Context) {
	rec, err := h.Backups.Create(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		fail(c, h.Logger, err, "failed to create backup")
		return
	}
	util.Success(c, util.Response{"backup": rec})
}

func (h *BackupHandler) ListBackups(c *gin.Context) {
	list, err := h.Backups.List(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err, "failed to list backups")
		return
	}
	util.Success(c, util.Response{"items": list})
}

func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	rec, err := h.Backups.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.Logger, err, "failed to fetch backup")
		return
	}
	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", rec.FileName))
	c.File(rec.FilePath)
}

func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	n, err := h.Backups.Restore(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"))
	if err != nil {
		fail(c, h.Logger, err, "failed to restore backup")
		return
	}
	util.Success(c, util.Response{"message": "backup restored", "entries": n})
}
