package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"catalog-service/internal/models"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string

	// Import settings
	DefaultCurrency string
	MaxImportRows   int
	MaxUploadBytes  int64
	MaxRowErrors    int

	// Pagination
	DefaultPageSize int
	MaxPageSize     int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "20"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))
	maxImportRows, _ := strconv.Atoi(getEnv("MAX_IMPORT_ROWS", "10000"))
	maxUploadBytes, _ := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	maxRowErrors, _ := strconv.Atoi(getEnv("MAX_ROW_ERRORS", "500"))

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "catalog_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("PORT", "8089"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "GBP"),
		MaxImportRows:   maxImportRows,
		MaxUploadBytes:  maxUploadBytes,
		MaxRowErrors:    maxRowErrors,

		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate models to keep schema up to date. Adds missing columns
	// but never drops existing ones.
	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Brand{},
		&models.Category{},
		&models.Occasion{},
		&models.Material{},
		&models.Tag{},
		&models.Product{},
		&models.ProductImage{},
		&models.ProductTag{},
		&models.ImportJob{},
	); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "does not exist") && strings.Contains(errStr, "constraint") {
			log.Printf("Note: Migration constraint warning (safe to ignore): %v", err)
		} else {
			return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
		}
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
