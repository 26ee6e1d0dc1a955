// Package server wires services, handlers and routes into one gin engine.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"crocus/internal/config"
	"crocus/internal/handlers"
	"crocus/internal/middleware"
	"crocus/internal/services"
)

// Services holds every service of the ledger, sharing one database.
type Services struct {
	Accounts    services.AccountServicer
	Categories  services.CategoryServicer
	Audit       services.AuditServicer
	Rates       services.RateServicer
	Ledger      services.LedgerServicer
	Bookings    services.BookingSource
	Allocations services.AllocationServicer
	Matcher     services.ReconciliationServicer
	Imports     services.ImportServicer
	Jobs        services.JobServicer
	Caches      services.CacheServicer
}

// NewServices builds the service graph. feed may be nil, in which case
// rates are only ever published manually. now may be nil.
func NewServices(db *gorm.DB, cfg *config.Config, rules config.Rules, feed services.RateFeed, now func() time.Time) *Services {
	s := &Services{}
	s.Accounts = services.NewAccountService(db)
	s.Categories = services.NewCategoryService(db, rules.SystemCategories)
	s.Audit = services.NewAuditService(db)
	s.Rates = services.NewRateService(db, feed, cfg.RateCurrencies)
	s.Ledger = services.NewLedgerService(db, s.Accounts, s.Rates)
	s.Bookings = services.NewBookingSource(db)
	s.Allocations = services.NewAllocationService(db, s.Ledger, s.Bookings)
	s.Matcher = services.NewReconciliationService(db, s.Ledger, s.Rates)
	s.Imports = services.NewImportService(db, s.Accounts, s.Categories, s.Rates, s.Matcher, rules.PaymentKeywords)
	s.Jobs = services.NewJobService(db, s.Ledger, s.Rates, s.Bookings, rules, now)
	s.Caches = services.NewCacheService(db)
	return s
}

// NewRouter registers every route of the API on a fresh engine.
func NewRouter(svc *Services, cfg *config.Config) *gin.Engine {
	accountHandler := handlers.NewAccountHandler(svc.Accounts, svc.Audit)
	categoryHandler := handlers.NewCategoryHandler(svc.Categories, svc.Audit)
	transactionHandler := handlers.NewTransactionHandler(svc.Ledger, svc.Matcher, svc.Audit)
	allocationHandler := handlers.NewAllocationHandler(svc.Allocations, svc.Audit)
	importHandler := handlers.NewImportHandler(svc.Imports, svc.Audit)
	rateHandler := handlers.NewRateHandler(svc.Rates, svc.Audit)
	jobHandler := handlers.NewJobHandler(svc.Jobs, svc.Audit)
	cacheHandler := handlers.NewCacheHandler(svc.Caches)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Routes the scheduled pipeline may call with its API key.
	pipeline := v1.Group("/")
	pipeline.Use(middleware.OperatorOrPipeline(cfg.PipelineAPIKey))
	pipeline.POST("/jobs/:name/run", jobHandler.RunJob)
	pipeline.GET("/jobs", jobHandler.ListJobStatus)
	pipeline.GET("/jobs/:name", jobHandler.GetJobStatus)
	pipeline.POST("/rates/:date/fetch", rateHandler.FetchRates)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.ListAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)
	accounts.PATCH("/:id", accountHandler.UpdateAccount)

	counterparties := protected.Group("/counterparties")
	counterparties.POST("", accountHandler.CreateCounterparty)
	counterparties.GET("", accountHandler.ListCounterparties)
	counterparties.DELETE("/:id", accountHandler.ArchiveCounterparty)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.ListCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PATCH("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.POST("/:id/actual", transactionHandler.MarkActual)
	transactions.POST("/:id/link", transactionHandler.LinkPlanned)
	transactions.POST("/:id/reconcile", transactionHandler.Reconcile)
	transactions.PUT("/:id/allocations", allocationHandler.UpsertAllocations)
	transactions.GET("/:id/allocations", allocationHandler.GetAllocations)

	protected.GET("/bookings/:id/remainder", allocationHandler.BookingRemainder)

	imports := protected.Group("/imports")
	imports.POST("", importHandler.ImportStatement)
	imports.GET("", importHandler.ListImports)
	imports.POST("/:id/rollback", importHandler.RollbackImport)

	rates := protected.Group("/rates")
	rates.POST("", rateHandler.PublishRates)
	rates.GET("/:date", rateHandler.GetRates)

	caches := protected.Group("/caches")
	caches.GET("/account-daily", cacheHandler.AccountDaily)
	caches.GET("/pnl-monthly", cacheHandler.PnLMonthly)
	caches.GET("/sales-daily", cacheHandler.SalesDaily)
	caches.GET("/founders", cacheHandler.Founders)
	caches.GET("/overview", cacheHandler.Overview)

	return router
}
