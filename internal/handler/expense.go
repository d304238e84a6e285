package handler

import (
	"log/slog"
	"net/http"

	"agritrace/internal/middleware"
	"agritrace/internal/service"
	"agritrace/internal/util"

	"github.com/gin-gonic/gin"
)

// ExpenseHandler exposes the expense ledger and its admin views.
type ExpenseHandler struct {
	Ledger *service.Ledger
	Logger *slog.Logger
}

func NewExpenseHandler(ledger *service.Ledger, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{Ledger: ledger, Logger: logger}
}

func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	var in service.ExpenseInput
	if !bindJSON(c, &in) {
		return
	}
	expense, err := h.Ledger.CreateExpense(c.Request.Context(), middleware.CurrentActor(c), in)
	if err != nil {
		fail(c, h.Logger, err, "failed to create expense")
		return
	}
	util.Success(c, util.Response{"expense": expense})
}

func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	expenses, err := h.Ledger.GetAllExpenses(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err, "failed to fetch expenses")
		return
	}
	util.Success(c, util.Response{"expenses": expenses})
}

func (h *ExpenseHandler) ExpensesByCrop(c *gin.Context) {
	expenses, err := h.Ledger.GetExpensesByCrop(c.Request.Context(), c.Param("cropType"))
	if err != nil {
		fail(c, h.Logger, err, "failed to fetch crop expenses")
		return
	}
	util.Success(c, util.Response{"expenses": expenses})
}

func (h *ExpenseHandler) ExpensesByFarmer(c *gin.Context) {
	expenses, err := h.Ledger.GetExpensesByFarmer(c.Request.Context(), c.Param("farmerId"))
	if err != nil {
		fail(c, h.Logger, err, "failed to fetch farmer expenses")
		return
	}
	util.Success(c, util.Response{"expenses": expenses})
}

func (h *ExpenseHandler) CropTypes(c *gin.Context) {
	crops, err := h.Ledger.GetCropTypes(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err, "failed to fetch crop types")
		return
	}
	util.Success(c, util.Response{"cropTypes": crops})
}

func (h *ExpenseHandler) InitDemo(c *gin.Context) {
	summary, err := h.Ledger.InitDemoData(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err, "failed to initialize demo data")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ExpenseHandler) RefreshDemo(c *gin.Context) {
	summary, err := h.Ledger.RefreshDemoData(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err, "failed to refresh demo data")
		return
	}
	c.JSON(http.StatusOK, summary)
}
