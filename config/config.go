package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Places   PlacesConfig
	Registry RegistryConfig
	Cache    CacheConfig
	Search   SearchConfig
	S3       S3Config
	CORS     CORSConfig
}

type CORSConfig struct {
	AllowedOrigins []string
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// PlacesConfig configures the places index adapter.
type PlacesConfig struct {
	BaseURL        string
	APIKey         string
	MaxConcurrency int64
	Timeout        time.Duration
}

// RegistryConfig configures the company-registry adapter.
type RegistryConfig struct {
	BaseURL        string
	APIKey         string
	MaxConcurrency int64
	Timeout        time.Duration
}

// CacheConfig holds the TTL policy for each cached data class and the
// in-process cache capacity. These values are product policy: how stale a
// search result, registry record or coordinate lookup may be served.
type CacheConfig struct {
	SearchResultTTL time.Duration // cached search responses
	RegistryDataTTL time.Duration // company-registry enrichment data
	CoordinateTTL   time.Duration // geocoded coordinate lookups
	MaxEntries      int           // volatile cache capacity
	SweepInterval   time.Duration // background expiry sweep
	DedupWindow     time.Duration // completed-result reuse window
}

type SearchConfig struct {
	QueryTimeout    time.Duration
	DetailBatchSize int
	EnrichWorkers   int
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "tradescout"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Places: PlacesConfig{
			BaseURL:        getEnv("PLACES_API_BASE_URL", "https://maps.googleapis.com/maps/api"),
			APIKey:         getEnv("PLACES_API_KEY", ""),
			MaxConcurrency: int64(getEnvInt("PLACES_MAX_CONCURRENCY", 8)),
			Timeout:        parseDuration(getEnv("PLACES_TIMEOUT", "10s"), 10*time.Second),
		},
		Registry: RegistryConfig{
			BaseURL:        getEnv("REGISTRY_API_BASE_URL", "https://api.company-information.service.gov.uk"),
			APIKey:         getEnv("REGISTRY_API_KEY", ""),
			MaxConcurrency: int64(getEnvInt("REGISTRY_MAX_CONCURRENCY", 4)),
			Timeout:        parseDuration(getEnv("REGISTRY_TIMEOUT", "10s"), 10*time.Second),
		},
		Cache: CacheConfig{
			SearchResultTTL: parseDuration(getEnv("CACHE_SEARCH_TTL", "24h"), 24*time.Hour),
			RegistryDataTTL: parseDuration(getEnv("CACHE_REGISTRY_TTL", "168h"), 168*time.Hour),
			CoordinateTTL:   parseDuration(getEnv("CACHE_COORDINATE_TTL", "720h"), 720*time.Hour),
			MaxEntries:      getEnvInt("CACHE_MAX_ENTRIES", 1000),
			SweepInterval:   parseDuration(getEnv("CACHE_SWEEP_INTERVAL", "5m"), 5*time.Minute),
			DedupWindow:     parseDuration(getEnv("DEDUP_WINDOW", "500ms"), 500*time.Millisecond),
		},
		Search: SearchConfig{
			QueryTimeout:    parseDuration(getEnv("SEARCH_QUERY_TIMEOUT", "30s"), 30*time.Second),
			DetailBatchSize: getEnvInt("SEARCH_DETAIL_BATCH_SIZE", 10),
			EnrichWorkers:   getEnvInt("SEARCH_ENRICH_WORKERS", 4),
		},
		CORS: CORSConfig{
			AllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ","),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "eu-west-2"),
			Bucket:          getEnv("AWS_S3_BUCKET", "tradescout-exports"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s: %s, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, defaultValue)
		return defaultValue
	}
	return duration
}
