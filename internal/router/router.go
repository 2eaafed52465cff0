package router

import (
	"database/sql"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/handlers"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/middleware"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/services"
	"github.com/benwaldman33/gold-drop-production-tracker/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB) {
	// Initialize Repositories
	authRepo := repositories.NewAuthRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	supplierRepo := repositories.NewSupplierRepository(db)
	purchaseRepo := repositories.NewPurchaseRepository(db)
	lotRepo := repositories.NewLotRepository(db)
	pipelineRepo := repositories.NewPipelineRepository(db)
	runRepo := repositories.NewRunRepository(db)
	costRepo := repositories.NewCostEntryRepository(db)
	settingRepo := repositories.NewSettingRepository(db)
	kpiRepo := repositories.NewKpiTargetRepository(db)
	fieldTokenRepo := repositories.NewFieldTokenRepository(db)
	fieldSubmissionRepo := repositories.NewFieldSubmissionRepository(db)

	// Initialize Services
	jwtSecret := string(utils.JWTSecret())
	jwtExpiration := time.Hour * 72

	authService := services.NewAuthService(authRepo, auditRepo, db, jwtSecret, jwtExpiration)
	adminUsername := utils.Getenv("GOLD_DROP_ADMIN_USERNAME", "admin")
	adminPassword := utils.Getenv("GOLD_DROP_ADMIN_PASSWORD", "golddrop2026")
	if err := authService.EnsureAdminUser(adminUsername, adminPassword); err != nil {
		log.Warn().Err(err).Msg("Could not ensure bootstrap admin user")
	}
	auditService := services.NewAuditService(auditRepo)
	settingsService := services.NewSettingsService(settingRepo, kpiRepo, auditRepo, db)
	supplierService := services.NewSupplierService(supplierRepo, auditRepo, db)
	purchaseService := services.NewPurchaseService(purchaseRepo, lotRepo, supplierRepo, pipelineRepo, auditRepo, settingsService, db)
	pipelineService := services.NewPipelineService(pipelineRepo, purchaseRepo, supplierRepo, auditRepo, db)
	runService := services.NewRunService(runRepo, lotRepo, costRepo, auditRepo, settingsService, db)
	costService := services.NewCostService(costRepo, auditRepo, db)
	analyticsService := services.NewAnalyticsService(runRepo, lotRepo, purchaseRepo, supplierRepo, kpiRepo, settingsService)
	exportService := services.NewExportService(runRepo, purchaseRepo, lotRepo, pipelineRepo)
	importService := services.NewImportService(supplierRepo, purchaseRepo, lotRepo, runRepo, auditRepo, runService, db)
	fieldService := services.NewFieldService(fieldTokenRepo, fieldSubmissionRepo, supplierRepo, auditRepo, pipelineService, purchaseService, db)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	auditHandler := handlers.NewAuditHandler(auditService)
	supplierHandler := handlers.NewSupplierHandler(supplierService)
	purchaseHandler := handlers.NewPurchaseHandler(purchaseService)
	pipelineHandler := handlers.NewPipelineHandler(pipelineService)
	runHandler := handlers.NewRunHandler(runService)
	costHandler := handlers.NewCostHandler(costService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	exportHandler := handlers.NewExportHandler(exportService)
	importHandler := handlers.NewImportHandler(importService)
	fieldHandler := handlers.NewFieldHandler(fieldService)

	apiV1 := engine.Group("/api/v1")

	// Public authentication routes
	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)

	// Token-authenticated field intake, outside the session middleware
	SetupFieldIntakeRoutes(apiV1.Group("/field"), fieldHandler)

	// Everything else requires a valid token
	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupUserRoutes(authenticated, authHandler)
		SetupSupplierRoutes(authenticated, supplierHandler)
		SetupPurchaseRoutes(authenticated, purchaseHandler)
		SetupPipelineRoutes(authenticated, pipelineHandler)
		SetupRunRoutes(authenticated, runHandler)
		SetupCostRoutes(authenticated, costHandler)
		SetupSettingsRoutes(authenticated, settingsHandler)
		SetupAnalyticsRoutes(authenticated, analyticsHandler)
		SetupExportRoutes(authenticated, exportHandler)
		SetupImportRoutes(authenticated, importHandler)
		SetupAuditRoutes(authenticated, auditHandler)
		SetupFieldAdminRoutes(authenticated, fieldHandler)
	}
}

// SetupPublicAuthRoutes wires login; registration is admin-gated elsewhere.
func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/login", authHandler.LoginUser)
}

// SetupAuthenticatedAuthRoutes wires the self-service auth endpoints.
func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/logout", authHandler.LogoutUser)
	group.GET("/me", authHandler.GetCurrentUser)
	group.POST("/change-password", authHandler.ChangePassword)
}
