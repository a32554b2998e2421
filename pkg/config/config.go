package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: TDX-only runs work without it)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External sources
	Eastmoney EastmoneyConfig

	// Analysis
	Analysis AnalysisConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// EastmoneyConfig holds fund data site configuration
type EastmoneyConfig struct {
	BaseURL     string  // NAV history API
	PageBaseURL string  // fund detail pages (names)
	RatePerSec  float64 // 요청 속도 제한
	PageSize    int
	Workers     int    // 수집 워커 수
	Schedule    string // cron expression (with seconds) for NAV collection
}

// AnalysisConfig holds batch analysis settings
type AnalysisConfig struct {
	ProfilePath string        // YAML analysis profile, empty = defaults
	ThreadMode  string        // auto, single, custom
	Workers     int           // used when ThreadMode is custom
	TDXDataDir  string        // directory of *.day files
	ExportDir   string        // spreadsheet output directory
	ExportKeep  time.Duration // 보관 기간, 지나면 report_cleanup 이 삭제
	Schedule    string        // cron expression (with seconds) for the nightly run
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Eastmoney: EastmoneyConfig{
			BaseURL:     getEnv("EASTMONEY_BASE_URL", "https://api.fund.eastmoney.com"),
			PageBaseURL: getEnv("EASTMONEY_PAGE_URL", "https://fund.eastmoney.com"),
			RatePerSec:  getEnvAsFloat("EASTMONEY_RATE_PER_SEC", 2),
			PageSize:    getEnvAsInt("EASTMONEY_PAGE_SIZE", 49),
			Workers:     getEnvAsInt("EASTMONEY_WORKERS", 4),
			Schedule:    getEnv("SCHEDULE_COLLECT", "0 0 18 * * 1-5"),
		},

		Analysis: AnalysisConfig{
			ProfilePath: getEnv("ANALYSIS_PROFILE", ""),
			ThreadMode:  getEnv("ANALYSIS_THREAD_MODE", "auto"),
			Workers:     getEnvAsInt("ANALYSIS_WORKERS", 0),
			TDXDataDir:  getEnv("TDX_DATA_DIR", ""),
			ExportDir:   getEnv("EXPORT_DIR", "reports"),
			ExportKeep:  getEnvAsDuration("EXPORT_RETENTION", "720h"),
			Schedule:    getEnv("SCHEDULE_ANALYSIS", "0 30 18 * * 1-5"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Analysis.ThreadMode {
	case "auto", "single", "custom":
	default:
		return fmt.Errorf("ANALYSIS_THREAD_MODE must be one of: auto, single, custom")
	}

	if c.Eastmoney.RatePerSec <= 0 {
		return fmt.Errorf("EASTMONEY_RATE_PER_SEC must be > 0")
	}

	return nil
}

// ThreadSpec renders the thread settings in the form batch.ParseConcurrency accepts
func (a AnalysisConfig) ThreadSpec() string {
	if a.ThreadMode == "custom" {
		return fmt.Sprintf("custom:%d", a.Workers)
	}
	return a.ThreadMode
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
