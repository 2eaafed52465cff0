package router

import (
	"github.com/benwaldman33/gold-drop-production-tracker/internal/handlers"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/middleware"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"

	"github.com/gin-gonic/gin"
)

// Reads are open to every authenticated role, including viewers. Writes need
// an editor role, and the administrative surfaces need super admin.
func editorOnly() gin.HandlerFunc {
	return middleware.RoleAuthMiddleware(models.RoleSuperAdmin, models.RoleUser)
}

func adminOnly() gin.HandlerFunc {
	return middleware.RoleAuthMiddleware(models.RoleSuperAdmin)
}

// SetupUserRoutes sets up the user administration routes.
func SetupUserRoutes(authenticatedGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	userRoutes := authenticatedGroup.Group("/users")
	userRoutes.Use(adminOnly())
	{
		userRoutes.POST("", authHandler.RegisterUser)
		userRoutes.GET("", authHandler.GetUsers)
		userRoutes.PUT("/:id", authHandler.UpdateUser)
	}
}

// SetupSupplierRoutes sets up the supplier routes.
func SetupSupplierRoutes(authenticatedGroup *gin.RouterGroup, supplierHandler *handlers.SupplierHandler) {
	authenticatedGroup.GET("/suppliers", supplierHandler.GetSuppliers)
	authenticatedGroup.GET("/suppliers/:id", supplierHandler.GetSupplierByID)

	supplierWrites := authenticatedGroup.Group("/suppliers")
	supplierWrites.Use(editorOnly())
	{
		supplierWrites.POST("", supplierHandler.CreateSupplier)
		supplierWrites.PUT("/:id", supplierHandler.UpdateSupplier)
		supplierWrites.DELETE("/:id", supplierHandler.DeactivateSupplier)
	}
}

// SetupPurchaseRoutes sets up the purchase, lot and inventory routes.
func SetupPurchaseRoutes(authenticatedGroup *gin.RouterGroup, purchaseHandler *handlers.PurchaseHandler) {
	authenticatedGroup.GET("/purchases", purchaseHandler.GetPurchases)
	authenticatedGroup.GET("/purchases/:id", purchaseHandler.GetPurchaseByID)
	authenticatedGroup.GET("/lots/available", purchaseHandler.GetAvailableLots)
	authenticatedGroup.GET("/inventory", purchaseHandler.GetInventory)

	purchaseWrites := authenticatedGroup.Group("")
	purchaseWrites.Use(editorOnly())
	{
		purchaseWrites.POST("/purchases", purchaseHandler.CreatePurchase)
		purchaseWrites.PUT("/purchases/:id", purchaseHandler.UpdatePurchase)
		purchaseWrites.POST("/purchases/:id/lots", purchaseHandler.AddLot)
		purchaseWrites.PUT("/lots/:id", purchaseHandler.UpdateLot)
	}
}

// SetupPipelineRoutes sets up the biomass pipeline routes.
func SetupPipelineRoutes(authenticatedGroup *gin.RouterGroup, pipelineHandler *handlers.PipelineHandler) {
	authenticatedGroup.GET("/pipeline", pipelineHandler.GetAvailabilities)
	authenticatedGroup.GET("/pipeline/:id", pipelineHandler.GetAvailabilityByID)

	pipelineWrites := authenticatedGroup.Group("/pipeline")
	pipelineWrites.Use(editorOnly())
	{
		pipelineWrites.POST("", pipelineHandler.CreateAvailability)
		pipelineWrites.PUT("/:id", pipelineHandler.UpdateAvailability)
		pipelineWrites.DELETE("/:id", pipelineHandler.DeleteAvailability)
	}
}

// SetupRunRoutes sets up the extraction run routes. Recalculation touches
// every run, so it stays super admin only.
func SetupRunRoutes(authenticatedGroup *gin.RouterGroup, runHandler *handlers.RunHandler) {
	authenticatedGroup.GET("/runs", runHandler.GetRuns)
	authenticatedGroup.GET("/runs/:id", runHandler.GetRunByID)

	runWrites := authenticatedGroup.Group("/runs")
	runWrites.Use(editorOnly())
	{
		runWrites.POST("", runHandler.CreateRun)
		runWrites.PUT("/:id", runHandler.UpdateRun)
		runWrites.DELETE("/:id", runHandler.DeleteRun)
	}

	authenticatedGroup.POST("/runs/recalculate", adminOnly(), runHandler.RecalculateAll)
}

// SetupCostRoutes sets up the operating-cost routes.
func SetupCostRoutes(authenticatedGroup *gin.RouterGroup, costHandler *handlers.CostHandler) {
	authenticatedGroup.GET("/costs", costHandler.GetCostEntries)
	authenticatedGroup.GET("/costs/:id", costHandler.GetCostEntryByID)

	costWrites := authenticatedGroup.Group("/costs")
	costWrites.Use(editorOnly())
	{
		costWrites.POST("", costHandler.CreateCostEntry)
		costWrites.PUT("/:id", costHandler.UpdateCostEntry)
		costWrites.DELETE("/:id", costHandler.DeleteCostEntry)
	}
}

// SetupSettingsRoutes sets up the settings and KPI target routes.
func SetupSettingsRoutes(authenticatedGroup *gin.RouterGroup, settingsHandler *handlers.SettingsHandler) {
	authenticatedGroup.GET("/settings", settingsHandler.GetSettings)
	authenticatedGroup.GET("/settings/kpi-targets", settingsHandler.GetKpiTargets)

	settingsWrites := authenticatedGroup.Group("/settings")
	settingsWrites.Use(adminOnly())
	{
		settingsWrites.PUT("", settingsHandler.UpdateSettings)
		settingsWrites.PUT("/kpi-targets/:name", settingsHandler.UpdateKpiTarget)
	}
}

// SetupAnalyticsRoutes sets up the dashboard and performance routes.
func SetupAnalyticsRoutes(authenticatedGroup *gin.RouterGroup, analyticsHandler *handlers.AnalyticsHandler) {
	authenticatedGroup.GET("/dashboard/summary", analyticsHandler.GetDashboard)
	authenticatedGroup.GET("/analytics/suppliers", analyticsHandler.GetSupplierPerformance)
	authenticatedGroup.GET("/analytics/strains", analyticsHandler.GetStrainPerformance)
}

// SetupExportRoutes sets up the CSV export routes.
func SetupExportRoutes(authenticatedGroup *gin.RouterGroup, exportHandler *handlers.ExportHandler) {
	authenticatedGroup.GET("/export/:entity", exportHandler.ExportCSV)
}

// SetupImportRoutes sets up the historical-data import routes.
func SetupImportRoutes(authenticatedGroup *gin.RouterGroup, importHandler *handlers.ImportHandler) {
	importRoutes := authenticatedGroup.Group("/import")
	importRoutes.Use(editorOnly())
	{
		importRoutes.POST("/preview", importHandler.PreviewImport)
		importRoutes.POST("/confirm", importHandler.ConfirmImport)
	}
}

// SetupAuditRoutes sets up the audit trail routes.
func SetupAuditRoutes(authenticatedGroup *gin.RouterGroup, auditHandler *handlers.AuditHandler) {
	auditRoutes := authenticatedGroup.Group("/audit")
	auditRoutes.Use(adminOnly())
	{
		auditRoutes.GET("", auditHandler.GetRecentEvents)
		auditRoutes.GET("/:entity/:id", auditHandler.GetEntityHistory)
	}
}

// SetupFieldIntakeRoutes sets up the public field intake routes. They carry
// no session; the service authenticates each request with its ?t= token.
func SetupFieldIntakeRoutes(group *gin.RouterGroup, fieldHandler *handlers.FieldHandler) {
	group.POST("/biomass", fieldHandler.SubmitAvailability)
	group.POST("/purchases", fieldHandler.SubmitPurchase)
}

// SetupFieldAdminRoutes sets up the token and submission management routes.
func SetupFieldAdminRoutes(authenticatedGroup *gin.RouterGroup, fieldHandler *handlers.FieldHandler) {
	tokenRoutes := authenticatedGroup.Group("/field-tokens")
	tokenRoutes.Use(adminOnly())
	{
		tokenRoutes.POST("", fieldHandler.CreateToken)
		tokenRoutes.GET("", fieldHandler.GetTokens)
		tokenRoutes.POST("/:id/revoke", fieldHandler.RevokeToken)
	}

	submissionRoutes := authenticatedGroup.Group("/field-submissions")
	submissionRoutes.Use(adminOnly())
	{
		submissionRoutes.GET("", fieldHandler.GetSubmissions)
		submissionRoutes.GET("/:id", fieldHandler.GetSubmissionByID)
		submissionRoutes.POST("/:id/approve", fieldHandler.ApproveSubmission)
		submissionRoutes.POST("/:id/reject", fieldHandler.RejectSubmission)
	}
}
