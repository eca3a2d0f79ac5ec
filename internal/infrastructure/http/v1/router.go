// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"roastledger/internal/core/types"
	"roastledger/internal/domain/auth"
	"roastledger/internal/domain/catalogs/product"
	"roastledger/internal/domain/consumption"
	"roastledger/internal/domain/costing"
	"roastledger/internal/domain/documents/purchase"
	"roastledger/internal/domain/documents/sale"
	"roastledger/internal/domain/recipes"
	"roastledger/internal/domain/registers/stock"
	"roastledger/internal/domain/reports"
	"roastledger/internal/infrastructure/http/v1/handlers"
	"roastledger/internal/infrastructure/http/v1/middleware"
	"roastledger/internal/infrastructure/storage/postgres"
	"roastledger/internal/infrastructure/storage/postgres/catalog_repo"
	"roastledger/internal/infrastructure/storage/postgres/costing_repo"
	"roastledger/internal/infrastructure/storage/postgres/document_repo"
	"roastledger/internal/infrastructure/storage/postgres/recipe_repo"
	"roastledger/internal/infrastructure/storage/postgres/register_repo"
	"roastledger/internal/ingest"
	"roastledger/pkg/logger"
	"roastledger/pkg/numerator"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks and the
	// document numerator).
	Pool *postgres.Pool

	// TxManager coordinates transactions for all repositories.
	TxManager *postgres.TxManager

	// Logger for request logging.
	Logger *logger.Logger

	// AuthService for the login endpoint and token validation.
	AuthService *auth.Service

	// Audit records entity change history.
	Audit *postgres.AuditService

	// JWTValidator for token validation.
	JWTValidator middleware.JWTValidator

	// LossRate is the roast weight loss multiplier.
	LossRate float64

	// LowStockKg is the threshold for low stock flags in reports.
	LowStockKg types.Quantity
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	baseHandler := handlers.NewBaseHandler()

	// Shared domain wiring. Every service shares the one register so
	// documents and reports see the same balances.
	auditService := cfg.Audit
	num := numerator.New(cfg.Pool.Pool)
	calc := consumption.NewCalculator(cfg.LossRate)

	stockRepo := register_repo.NewStockRepo(cfg.TxManager)
	stockService := stock.NewService(stockRepo)

	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	productService := product.NewService(productRepo, cfg.TxManager)

	recipeRepo := recipe_repo.NewRecipeRepo(cfg.TxManager)
	recipeService := recipes.NewService(recipeRepo, cfg.TxManager)

	purchaseRepo := document_repo.NewPurchaseRepo(cfg.TxManager)
	purchaseService := purchase.NewService(purchaseRepo, stockService, num, auditService, cfg.TxManager)

	saleRepo := document_repo.NewSaleRepo(cfg.TxManager)
	saleService := sale.NewService(saleRepo, recipeService, calc, stockService, num, auditService, cfg.TxManager)

	costingRepo := costing_repo.NewCostingRepo(cfg.TxManager)
	costingService := costing.NewService(costingRepo, recipeService, calc, cfg.TxManager)

	reportService := reports.NewService(stockService, costingService, recipeService, calc, cfg.LowStockKg)

	importer := ingest.NewImporter(saleService, purchaseService, productService)

	// API v1
	v1 := router.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)

		publicAuth := v1.Group("/auth")
		protectedAuth := v1.Group("/auth")
		protectedAuth.Use(middleware.Auth(cfg.JWTValidator))
		authHandler.RegisterRoutes(publicAuth, protectedAuth)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		handlers.NewProductHandler(baseHandler, productService).
			RegisterRoutes(protected.Group("/catalog/products"))
		handlers.NewRecipeHandler(baseHandler, recipeService).
			RegisterRoutes(protected.Group("/recipes"))
		handlers.NewPurchaseHandler(baseHandler, purchaseService).
			RegisterRoutes(protected.Group("/document/purchases"))
		handlers.NewSaleHandler(baseHandler, saleService).
			RegisterRoutes(protected.Group("/document/sales"))
		handlers.NewStockHandler(baseHandler, stockService).
			RegisterRoutes(protected.Group("/registers/stock"))
		handlers.NewCostingHandler(baseHandler, costingService).
			RegisterRoutes(protected.Group("/costing"))
		handlers.NewReportsHandler(baseHandler, reportService).
			RegisterRoutes(protected.Group("/reports"))
		handlers.NewImportHandler(baseHandler, importer).
			RegisterRoutes(protected.Group("/imports"))
	}

	return router
}
