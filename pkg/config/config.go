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

	// Outbound HTTP (shared connection pool)
	Fetch FetchConfig

	// Screening defaults
	Screening ScreeningConfig

	// External sources
	Naver         NaverConfig
	KRX           KRXConfig
	StockAnalysis StockAnalysisConfig

	// Optional infrastructure
	Database DatabaseConfig
	Redis    RedisConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// FetchConfig holds the resilient fetch client settings.
// One transport is built from these per process.
type FetchConfig struct {
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration // response header timeout
	RequestTimeout  time.Duration // whole request incl. body
	MaxConns        int
	MaxConnsPerHost int
	MaxRetries      int
	BackoffBase     time.Duration
	UserAgent       string
	RateLimit       float64 // requests per second, 0 = unlimited
	RateBurst       int
}

// ScreeningConfig holds default screening criteria
type ScreeningConfig struct {
	Market          string // kr, us
	UniverseSource  string // remote, postgres
	Concurrency     int
	AmplitudeDays   int
	AmplitudeMinPct float64
	AmplitudeMaxPct float64
	NewHighDays     int
	RecentDays      int
	RowsPerPage     int
	Schedule        string // cron expression (with seconds)
	UniverseTTL     time.Duration
}

// NaverConfig holds Naver Finance configuration
type NaverConfig struct {
	BaseURL    string // daily price pages
	APIBaseURL string // US listing JSON API
}

// KRXConfig holds KIND (KRX listed company) configuration
type KRXConfig struct {
	KindBaseURL string
}

// StockAnalysisConfig holds the US price history source configuration
type StockAnalysisConfig struct {
	BaseURL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration.
// Only needed when the universe is read from Postgres.
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Fetch: FetchConfig{
			ConnectTimeout:  getEnvAsDuration("FETCH_CONNECT_TIMEOUT", "12s"),
			ReadTimeout:     getEnvAsDuration("FETCH_READ_TIMEOUT", "20s"),
			RequestTimeout:  getEnvAsDuration("FETCH_REQUEST_TIMEOUT", "25s"),
			MaxConns:        getEnvAsInt("FETCH_MAX_CONNS", 500),
			MaxConnsPerHost: getEnvAsInt("FETCH_MAX_CONNS_PER_HOST", 300),
			MaxRetries:      getEnvAsInt("FETCH_MAX_RETRIES", 3),
			BackoffBase:     getEnvAsDuration("FETCH_BACKOFF_BASE", "300ms"),
			UserAgent:       getEnv("FETCH_USER_AGENT", "Mozilla/5.0"),
			RateLimit:       getEnvAsFloat("FETCH_RATE_LIMIT", 0),
			RateBurst:       getEnvAsInt("FETCH_RATE_BURST", 30),
		},

		Screening: ScreeningConfig{
			Market:          getEnv("SCREEN_MARKET", "kr"),
			UniverseSource:  getEnv("SCREEN_UNIVERSE_SOURCE", "remote"),
			Concurrency:     getEnvAsInt("SCREEN_CONCURRENCY", 30),
			AmplitudeDays:   getEnvAsInt("SCREEN_AMPLITUDE_DAYS", 20),
			AmplitudeMinPct: getEnvAsFloat("SCREEN_AMPLITUDE_MIN_PCT", 10),
			AmplitudeMaxPct: getEnvAsFloat("SCREEN_AMPLITUDE_MAX_PCT", 30),
			NewHighDays:     getEnvAsInt("SCREEN_NEW_HIGH_DAYS", 250),
			RecentDays:      getEnvAsInt("SCREEN_RECENT_DAYS", 3),
			RowsPerPage:     getEnvAsInt("SCREEN_ROWS_PER_PAGE", 10),
			Schedule:        getEnv("SCREEN_SCHEDULE", "0 40 15 * * 1-5"), // 장 마감 후
			UniverseTTL:     getEnvAsDuration("SCREEN_UNIVERSE_TTL", "24h"),
		},

		Naver: NaverConfig{
			BaseURL:    getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
			APIBaseURL: getEnv("NAVER_API_BASE_URL", "https://api.stock.naver.com"),
		},

		KRX: KRXConfig{
			KindBaseURL: getEnv("KRX_KIND_BASE_URL", "http://kind.krx.co.kr"),
		},

		StockAnalysis: StockAnalysisConfig{
			BaseURL: getEnv("STOCKANALYSIS_BASE_URL", "https://stockanalysis.com"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
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

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks configuration consistency.
// Misconfiguration is a bug, so it fails the run before any request is made.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Screening.Market {
	case "kr", "us":
	default:
		return fmt.Errorf("SCREEN_MARKET must be one of: kr, us")
	}

	switch c.Screening.UniverseSource {
	case "remote":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when SCREEN_UNIVERSE_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("SCREEN_UNIVERSE_SOURCE must be one of: remote, postgres")
	}

	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("FETCH_MAX_RETRIES must not be negative")
	}
	if c.Fetch.MaxConns <= 0 || c.Fetch.MaxConnsPerHost <= 0 {
		return fmt.Errorf("FETCH_MAX_CONNS and FETCH_MAX_CONNS_PER_HOST must be positive")
	}

	// 커넥션 풀이 동시성 상한보다 작으면 워커가 풀 대기에 묶임
	if c.Fetch.MaxConnsPerHost < c.Screening.Concurrency {
		return fmt.Errorf("FETCH_MAX_CONNS_PER_HOST (%d) must be >= SCREEN_CONCURRENCY (%d)",
			c.Fetch.MaxConnsPerHost, c.Screening.Concurrency)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

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
