// Package main is the entry point for the application.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"log"
	"strconv"
	"time"

	"cardauth/internal/config"
	"cardauth/internal/handlers"
	"cardauth/internal/repositories"
	"cardauth/internal/services/authorization"
	"cardauth/internal/services/balance"
	"cardauth/internal/services/card"
	"cardauth/internal/services/hold"
	"cardauth/internal/services/ledger"
	"cardauth/internal/services/limits"
	"cardauth/internal/services/risk"
	"cardauth/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// main initializes and starts the HTTP server.
// It performs the following setup:
// - Loads configuration
// - Initializes database and cache connections
// - Sets up dependency injection for the authorization pipeline
// - Configures routes and starts the expiry sweeper
func main() {
	// Load environment variables
	config.LoadEnv()

	if err := telemetry.InitTelemetry("cardauth"); err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer telemetry.Shutdown()

	// Initialize databases (PostgreSQL + Redis)
	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	maxIdleConns, _ := strconv.Atoi(config.GetEnv("DB_MAX_IDLE_CONNS", "10"))
	maxOpenConns, _ := strconv.Atoi(config.GetEnv("DB_MAX_OPEN_CONNS", "100"))
	connMaxLifetime, _ := time.ParseDuration(config.GetEnv("DB_CONN_MAX_LIFETIME", "1h"))
	connMaxIdleTime, _ := time.ParseDuration(config.GetEnv("DB_CONN_MAX_IDLE_TIME", "30m"))

	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Successfully connected to database with connection pooling")

	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("⚠️ Failed to close database connection: %v", err)
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Printf("⚠️ Failed to close Redis connection: %v", err)
			}
		}
	}()

	authCfg := config.LoadAuthorizationConfig()
	metrics := telemetry.NewPrometheusCollector()

	// Repositories
	requestRepo := repositories.NewRequestRepository(repositories.DB)
	decisionRepo := repositories.NewDecisionRepository(repositories.DB)
	holdRepo := repositories.NewHoldRepository(repositories.DB)
	windowRepo := repositories.NewSpendingWindowRepository(repositories.DB)

	// External collaborators
	directory := card.NewDirectoryClient(authCfg.CardService, metrics)
	ledgerClient := ledger.NewClient(authCfg.Ledger, metrics)
	rates, err := ledger.NewRateTable(nil)
	if err != nil {
		log.Fatalf("Failed to build rate table: %v", err)
	}

	// Pipeline services
	cardService := card.NewService(directory, repositories.CacheService)
	limitService := limits.NewService(windowRepo, authCfg)
	riskEngine := risk.NewEngine(authCfg)
	balanceService := balance.NewService(ledgerClient, rates)
	holdManager := hold.NewManager(repositories.DB, holdRepo, ledgerClient, metrics, telemetry.Logger)

	authService := authorization.NewService(authorization.Deps{
		DB:        repositories.DB,
		Requests:  requestRepo,
		Decisions: decisionRepo,
		Cards:     cardService,
		Limits:    limitService,
		Risk:      riskEngine,
		Balance:   balanceService,
		Holds:     holdManager,
		Cache:     repositories.CacheService,
		Config:    authCfg,
		Metrics:   metrics,
		Logger:    telemetry.Logger,
	})

	// Expiry sweeper
	sweeper := hold.NewSweeper(holdManager, authCfg.SweepInterval, telemetry.Logger)
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	sweeper.Start(sweepCtx)
	defer func() {
		cancelSweep()
		sweeper.Stop()
	}()

	// Create Fiber app
	app := fiber.New()

	// CORS middleware
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Use("/api/v1/authorizations", limiter.New(limiter.Config{
		Max:        config.GetIntEnv("RATE_LIMIT_AUTHORIZATIONS", 200),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	// Routes
	authHandler := handlers.NewAuthorizationHandler(authService)
	holdHandler := handlers.NewHoldHandler(holdManager, sweeper)
	handlers.SetupRoutes(app, authHandler, holdHandler)

	// Start server
	log.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}
