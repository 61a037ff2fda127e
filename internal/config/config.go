package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Logger      LoggerConfig
	Auth        AuthConfig
	Gateway     GatewayConfig
	Catalog     CatalogConfig
	Promo       PromoConfig
	Reservation ReservationConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// GatewayConfig holds payment gateway credentials and endpoints.
type GatewayConfig struct {
	BaseURL       string
	Account       string
	Token         string
	SigningSecret string
}

// CatalogConfig points at the product catalogue service.
type CatalogConfig struct {
	BaseURL string
}

// PromoConfig selects where discount codes are validated. When BaseURL is
// set codes are checked against the promotions service; otherwise the
// definition files are loaded into memory at startup, from S3 when a
// bucket is configured (falling back to the local files) or from the
// local file system alone. Empty file paths disable that code family.
type PromoConfig struct {
	BaseURL       string
	CouponsFile   string
	ReferralsFile string
	GiftCardsFile string
	S3Enabled     bool
	S3Bucket      string
	S3Region      string
	S3Prefix      string
}

// ReservationConfig controls how long stock holds live before expiry.
type ReservationConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// RedisConfig holds the webhook deduplication store settings. Redis is
// optional; without it dedup falls back to an in-process store.
type RedisConfig struct {
	Enabled bool
	Addr    string
	DB      int
}

// KafkaConfig holds the order event stream settings. Kafka is optional;
// without it order events are dropped.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "lojinha"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		Gateway: GatewayConfig{
			BaseURL:       getEnv("GATEWAY_BASE_URL", "https://ws.pagamento.example.com"),
			Account:       getEnv("GATEWAY_ACCOUNT", ""),
			Token:         getEnv("GATEWAY_TOKEN", ""),
			SigningSecret: getEnv("GATEWAY_SIGNING_SECRET", ""),
		},
		Catalog: CatalogConfig{
			BaseURL: getEnv("CATALOG_BASE_URL", ""),
		},
		Promo: PromoConfig{
			BaseURL:       getEnv("PROMO_BASE_URL", ""),
			CouponsFile:   getEnv("PROMO_COUPONS_FILE", ""),
			ReferralsFile: getEnv("PROMO_REFERRALS_FILE", ""),
			GiftCardsFile: getEnv("PROMO_GIFTCARDS_FILE", ""),
			S3Enabled:     getEnvAsBool("PROMO_S3_ENABLED", false),
			S3Bucket:      getEnv("PROMO_S3_BUCKET", ""),
			S3Region:      getEnv("PROMO_S3_REGION", "us-east-1"),
			S3Prefix:      getEnv("PROMO_S3_PREFIX", "promo/"),
		},
		Reservation: ReservationConfig{
			TTL:           getEnvAsDuration("RESERVATION_TTL", 30*time.Minute),
			SweepInterval: getEnvAsDuration("RESERVATION_SWEEP_INTERVAL", time.Minute),
		},
		Redis: RedisConfig{
			Enabled: getEnvAsBool("REDIS_ENABLED", false),
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			DB:      getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "order-events"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway base URL is required")
	}

	if c.Gateway.Account == "" || c.Gateway.Token == "" {
		return fmt.Errorf("gateway account and token are required")
	}

	if c.Gateway.SigningSecret == "" {
		return fmt.Errorf("gateway signing secret is required")
	}

	if c.Reservation.TTL < time.Minute {
		return fmt.Errorf("reservation TTL must be at least one minute")
	}

	if c.Reservation.SweepInterval < time.Second {
		return fmt.Errorf("reservation sweep interval must be at least one second")
	}

	if c.Promo.S3Enabled {
		if c.Promo.S3Bucket == "" {
			return fmt.Errorf("promo S3 bucket is required when promo S3 is enabled")
		}
		if c.Promo.S3Region == "" {
			return fmt.Errorf("promo S3 region is required when promo S3 is enabled")
		}
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice retrieves a comma-separated environment variable or returns a default value.
func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
