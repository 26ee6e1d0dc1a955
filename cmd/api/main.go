package main

import (
	"fmt"
	"net/http"
	"os"

	"crocus/internal/config"
	"crocus/internal/database"
	"crocus/internal/fxfeed"
	"crocus/internal/logger"
	"crocus/internal/server"
	"crocus/internal/validator"

	"github.com/gin-gonic/gin"

	_ "crocus/internal/docs" // Import swagger docs
)

// @title           Crocus Ledger API
// @version         1.0
// @description     Back-office ledger for a travel agency: transactions, statement imports, planned-vs-actual reconciliation, booking allocations and the derived reporting caches.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Pipeline API key for scheduled jobs and rate fetches.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("failed to load ledger rules: %w", err)
	}

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	feed := fxfeed.New(&http.Client{Timeout: cfg.RatesFeedTimeout}, cfg.RatesFeedURL)
	svc := server.NewServices(dbManager.DB(), cfg, rules, feed, nil)
	router := server.NewRouter(svc, cfg)

	if cfg.PipelineAPIKey == "" {
		log.Warn("PIPELINE_API_KEY is not set; pipeline routes accept operator tokens only")
	}

	log.Infof("Starting Crocus ledger on port %s", cfg.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
	return router.Run(":" + cfg.Port)
}
