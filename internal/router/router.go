package router

import (
	"log/slog"
	"net/http"

	"agritrace/internal/config"
	"agritrace/internal/handler"
	"agritrace/internal/metrics"
	"agritrace/internal/middleware"
	"agritrace/internal/models"
	"agritrace/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles what the HTTP layer serves.
type Services struct {
	Registry *service.Registry
	Ledger   *service.Ledger
	Users    *service.Users
	Audit    *service.AuditTrail
	Backups  *service.Backups
	Metrics  *metrics.Metrics
	// Gatherer backs /metrics; nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
}

// SetupRouter configures the gin engine and all API routes.
func SetupRouter(cfg *config.Config, svc Services, logger *slog.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(logger.With("component", "http"), svc.Metrics), gin.Recovery())

	if svc.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{})))
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	jwtSecret := cfg.JWT.Secret
	optionalAuth := middleware.Authenticate(jwtSecret, svc.Users, false)
	requireAuth := middleware.Authenticate(jwtSecret, svc.Users, true)
	audit := middleware.Audit(svc.Audit, logger.With("component", "audit"))

	// ====== API ======
	api := r.Group(cfg.Server.PathPrefix)
	api.GET("/health", handler.Health)

	authHandler := handler.NewAuthHandler(svc.Users, jwtSecret, cfg.JWT.Issuer, cfg.JWT.ExpireHours, logger)
	api.POST("/auth/register", optionalAuth, authHandler.Register)
	api.POST("/auth/login", middleware.LoginRateLimiter(cfg.Security.LoginRatePerMinute), authHandler.Login)

	batchHandler := handler.NewBatchHandler(svc.Registry, logger)
	userHandler := handler.NewUserHandler(svc.Users, logger)
	expenseHandler := handler.NewExpenseHandler(svc.Ledger, logger)

	// public reads; a token, when present, still identifies the caller
	public := api.Group("", optionalAuth, audit)
	public.GET("/batches/:userId", batchHandler.ListUserBatches)
	public.GET("/batch/:batchId", batchHandler.GetBatch)
	public.GET("/transfers/:transferId", batchHandler.GetTransfer)
	public.GET("/users/:userId", userHandler.GetUser)
	public.GET("/demo/qr/:qrId", batchHandler.LookupQR)

	// writes go through the services, which check ownership themselves
	// when security.enforce_ownership is set
	writes := api.Group("", optionalAuth, audit)
	if cfg.Security.EnforceOwnership {
		writes = api.Group("", requireAuth, audit)
	}
	writes.POST("/batches", batchHandler.CreateBatch)
	writes.POST("/batches/:batchId/transfer", batchHandler.TransferBatch)
	writes.POST("/expenses", expenseHandler.CreateExpense)

	protected := api.Group("", requireAuth, audit)
	protected.GET("/me", authHandler.Me)
	protected.PUT("/users/:userId", userHandler.UpdateUser)
	protected.POST("/users/:userId/password", userHandler.ChangePassword)

	admin := api.Group("/admin", requireAuth, middleware.RequireRole(models.RoleAdmin), audit)
	admin.GET("/expenses", expenseHandler.ListExpenses)
	admin.GET("/expenses/crop/:cropType", expenseHandler.ExpensesByCrop)
	admin.GET("/farmers/:farmerId/expenses", expenseHandler.ExpensesByFarmer)
	admin.GET("/crop-types", expenseHandler.CropTypes)
	admin.GET("/expenses/export/csv", expenseHandler.ExportCSV)
	admin.GET("/expenses/export/xlsx", expenseHandler.ExportXLSX)
	admin.POST("/init-demo", expenseHandler.InitDemo)
	admin.POST("/refresh-demo", expenseHandler.RefreshDemo)

	auditHandler := handler.NewAuditHandler(svc.Audit, cfg.App.PageSize, logger)
	admin.GET("/audit-logs", auditHandler.ListLogs)

	backupHandler := handler.NewBackupHandler(svc.Backups, logger)
	admin.POST("/backups", backupHandler.CreateBackup)
	admin.GET("/backups", backupHandler.ListBackups)
	admin.GET("/backups/:id/download", backupHandler.DownloadBackup)
	admin.POST("/backups/:id/restore", backupHandler.RestoreBackup)

	return r
}
