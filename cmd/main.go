package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"catalog-service/internal/config"
	"catalog-service/internal/events"
	"catalog-service/internal/handlers"
	"catalog-service/internal/importer"
	"catalog-service/internal/middleware"
	"catalog-service/internal/repository"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client for import lifecycle events
	var redisClient *redis.Client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without event publishing)", err)
	} else {
		redisClient = redis.NewClient(redisOpts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("WARNING: Failed to connect to Redis: %v (event publishing will be disabled)", err)
			redisClient = nil
		} else {
			log.Println("✓ Redis connected successfully")
		}
		cancel()
	}

	// Initialize repository, events and the import engine
	catalogRepo := repository.NewCatalogRepository(db)
	publisher := events.NewPublisher(redisClient, logger)

	engine := importer.NewEngine(catalogRepo, logrus.NewEntry(logger), cfg.DefaultCurrency)
	engine.SetMaxRowErrors(cfg.MaxRowErrors)

	// Initialize handlers
	importHandler := handlers.NewImportHandler(catalogRepo, engine, publisher, cfg, logger)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)

	api := router.Group("/api/v1")

	// Tenant routes: brand context required, every operation scoped to the
	// caller's own catalog.
	catalog := api.Group("/catalog")
	catalog.Use(middleware.BrandMiddleware())
	{
		catalog.GET("/import/template", importHandler.GetImportTemplate)
		catalog.POST("/import", importHandler.ImportCatalog)
		catalog.GET("/import/jobs", importHandler.ListImportJobs)
		catalog.GET("/import/jobs/:id", importHandler.GetImportJob)
	}

	// Admin routes: cross-brand feeds with brand columns in the file.
	admin := api.Group("/admin/catalog")
	admin.Use(middleware.ActorMiddleware())
	{
		admin.GET("/import/template", importHandler.GetImportTemplate)
		admin.POST("/import", importHandler.ImportCatalog)
		admin.GET("/import/jobs", importHandler.ListImportJobs)
		admin.GET("/import/jobs/:id", importHandler.GetImportJob)
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Catalog service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down catalog-service...")

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}

	log.Println("Catalog service stopped")
}
