package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment   string
	LogLevel      string
	Storage       StorageConfig
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	OTEL          OTELConfig
	Queue         QueueConfig
	Retry         RetryConfig
	Export        ExportConfig
	Notifications NotificationConfig
	Templates     TemplateConfig
}

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// StorageConfig selects where clients, packets and audit entries live
type StorageConfig struct {
	Backend string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// QueueConfig holds packet queue poller configuration
type QueueConfig struct {
	Enabled           bool
	PollInterval      time.Duration
	BatchSize         int
	Concurrency       int
	ProcessingTimeout time.Duration
}

// RetryConfig holds packet retry policy
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	Factor     float64
	MaxDelay   time.Duration
}

// ExportConfig holds PDF export service configuration
type ExportConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NotificationConfig holds notification channel configuration
type NotificationConfig struct {
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	AdminPhones           []string
}

// TemplateConfig holds template override configuration
type TemplateConfig struct {
	OverrideDir string
	CacheTTL    time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Storage: StorageConfig{
			Backend: strings.ToLower(getEnv("STORAGE_BACKEND", StoragePostgres)),
		},
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "coach_packets"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "coach-packets"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Queue: QueueConfig{
			Enabled:           getEnvAsBool("QUEUE_ENABLED", true),
			PollInterval:      getEnvAsDuration("QUEUE_POLL_INTERVAL", 10*time.Second),
			BatchSize:         getEnvAsInt("QUEUE_BATCH_SIZE", 10),
			Concurrency:       getEnvAsInt("QUEUE_CONCURRENCY", 1),
			ProcessingTimeout: getEnvAsDuration("QUEUE_PROCESSING_TIMEOUT", 5*time.Minute),
		},
		Retry: RetryConfig{
			MaxRetries: getEnvAsInt("RETRY_MAX_RETRIES", 3),
			BaseDelay:  getEnvAsDuration("RETRY_BASE_DELAY", 5*time.Second),
			Factor:     getEnvAsFloat("RETRY_FACTOR", 2),
			MaxDelay:   getEnvAsDuration("RETRY_MAX_DELAY", 5*time.Minute),
		},
		Export: ExportConfig{
			BaseURL: getEnv("PDF_EXPORT_URL", ""),
			APIKey:  getEnv("PDF_EXPORT_API_KEY", ""),
			Timeout: getEnvAsDuration("PDF_EXPORT_TIMEOUT", 30*time.Second),
		},
		Notifications: NotificationConfig{
			WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
			WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			AdminPhones:           getEnvAsList("ADMIN_ALERT_PHONES"),
		},
		Templates: TemplateConfig{
			OverrideDir: getEnv("TEMPLATE_OVERRIDE_DIR", ""),
			CacheTTL:    getEnvAsDuration("TEMPLATE_CACHE_TTL", 5*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the service misbehave
func (c *Config) Validate() error {
	if c.Storage.Backend != StoragePostgres && c.Storage.Backend != StorageMemory {
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage.Backend)
	}
	if c.Queue.BatchSize <= 0 {
		return fmt.Errorf("QUEUE_BATCH_SIZE must be positive, got %d", c.Queue.BatchSize)
	}
	if c.Queue.Concurrency <= 0 {
		return fmt.Errorf("QUEUE_CONCURRENCY must be positive, got %d", c.Queue.Concurrency)
	}
	if c.Queue.PollInterval <= 0 {
		return fmt.Errorf("QUEUE_POLL_INTERVAL must be positive")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("RETRY_MAX_RETRIES must not be negative, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("RETRY_MAX_DELAY (%s) must be >= RETRY_BASE_DELAY (%s)", c.Retry.MaxDelay, c.Retry.BaseDelay)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("30s") or bare milliseconds ("30000").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
