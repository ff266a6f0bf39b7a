package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port        string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	JWTSecret   string
	MongoURI    string
	CacheDBPath string
	Environment string

	// Market timezone and trading window (minutes since midnight, local time).
	// NEPSE trades Sunday-Thursday, 11:00-15:00 Asia/Kathmandu.
	MarketTimezone    string
	MarketOpenMinute  int
	MarketCloseMinute int

	// Upstream fetch deadline. Exceeding it is reported as a FetchError.
	FetchTimeout time.Duration

	// Minimum interval between re-fires of a recurring price alert while
	// its condition keeps holding. Zero means fire on every evaluation.
	PriceAlertCooldown time.Duration
}

var AppConfig *Config
var DB *gorm.DB

// LoadConfig loads environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8000"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "nepse_data"),
		JWTSecret:   getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production"),
		MongoURI:    getEnv("MONGODB_URI", ""),
		CacheDBPath: getEnv("CACHE_DB_PATH", ""),
		Environment: getEnv("ENVIRONMENT", "development"),

		MarketTimezone:    getEnv("MARKET_TIMEZONE", "Asia/Kathmandu"),
		MarketOpenMinute:  getEnvInt("MARKET_OPEN_MINUTE", 11*60),
		MarketCloseMinute: getEnvInt("MARKET_CLOSE_MINUTE", 15*60),

		FetchTimeout:       time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 15)) * time.Second,
		PriceAlertCooldown: time.Duration(getEnvInt("PRICE_ALERT_COOLDOWN_MINUTES", 30)) * time.Minute,
	}

	AppConfig = config
	return config, nil
}

// InitDB initializes the Postgres connection used for users, push tokens
// and price alerts
func InitDB() (*gorm.DB, error) {
	log.Printf("Connecting to database: host=%s port=%s user=%s dbname=%s",
		maskHost(AppConfig.DBHost),
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBName,
	)

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=prefer TimeZone=%s",
		AppConfig.DBHost,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBPort,
		AppConfig.MarketTimezone,
	)

	var logLevel logger.LogLevel
	if AppConfig.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		log.Printf("Database connection error: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Printf("Database connection verified successfully")
	DB = db
	return db, nil
}

// maskHost masks host for logging, preserving domain structure
func maskHost(host string) string {
	if len(host) <= 3 {
		return "***"
	}
	if len(host) <= 15 {
		return host[:3] + "***"
	}
	return host[:8] + "***" + host[len(host)-10:]
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
