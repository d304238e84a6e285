package handler

import (
	"log/slog"

	"agritrace/internal/middleware"
	"agritrace/internal/service"
	"agritrace/internal/util"

	"github.com/gin-gonic/gin"
)

// BatchHandler exposes the batch registry and transfer protocol.
type BatchHandler struct {
	Registry *service.Registry
	Logger   *slog.Logger
}

func NewBatchHandler(reg *service.Registry, logger *slog.Logger) *BatchHandler {
	return &BatchHandler{Registry: reg, Logger: logger}
}

func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var in service.BatchInput
	if !bindJSON(c, &in) {
		return
	}
	batch, err := h.Registry.CreateBatch(c.Request.Context(), middleware.CurrentActor(c), in)
	if err != nil {
		fail(c, h.Logger, err, "failed to create batch")
		return
	}
	util.Success(c, util.Response{"batch": batch})
}

func (h *BatchHandler) ListUserBatches(c *gin.Context) {
	batches, err := h.Registry.GetUserBatches(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, h.Logger, err, "failed to fetch batches")
		return
	}
	util.Success(c, util.Response{"batches": batches})
}

func (h *BatchHandler) GetBatch(c *gin.Context) {
	batch, err := h.Registry.GetBatch(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		fail(c, h.Logger, err, "failed to fetch batch")
		return
	}
	util.Success(c, util.Response{"batch": batch})
}

func (h *BatchHandler) TransferBatch(c *gin.Context) {
	var req service.TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	transfer, batch, err := h.Registry.TransferBatch(c.Request.Context(),
		middleware.CurrentActor(c), c.Param("batchId"), req)
	if err != nil {
		fail(c, h.Logger, err, "failed to transfer batch")
		return
	}
	util.Success(c, util.Response{"transfer": transfer, "batch": batch})
}

func (h *BatchHandler) GetTransfer(c *gin.Context) {
	transfer, err := h.Registry.GetTransfer(c.Request.Context(), c.Param("transferId"))
	if err != nil {
		fail(c, h.Logger, err, "failed to fetch transfer")
		return
	}
	util.Success(c, util.Response{"transfer": transfer})
}

// LookupQR answers a consumer scan.
func (h *BatchHandler) LookupQR(c *gin.Context) {
	data, err := h.Registry.LookupQR(c.Request.Context(), c.Param("qrId"))
	if err != nil {
		fail(c, h.Logger, err, "failed to fetch QR data")
		return
	}
	util.Success(c, util.Response{"data": data})
}
