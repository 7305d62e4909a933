package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL        string
	Port               string
	GoEnv              string
	Auth0Domain        string
	Auth0Audience      string
	JWTSecret          string
	JWTIssuer          string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	LogLevel           string
	CORSOrigins        []string
	RedisAddr          string
	SummaryCacheTTL    time.Duration
	KafkaBrokers       []string
	KafkaOrderTopic    string
	KafkaGroupID       string
	RestockOnCancel    bool
	RateLimitRPS       float64
	RateLimitBurst     int
}

// DefaultJWTAudience is the audience of HS256 tokens when none is configured
const DefaultJWTAudience = "buildmart-api"

var appConfig *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// If environment-specific file doesn't exist, try .env
		if err := godotenv.Load(); err != nil {
			// In production environment variables are set directly
			log.Debug().Msg("No .env file found, using system environment variables")
		}
	} else {
		log.Info().Str("file", envFile).Msg("Loaded configuration")
	}

	config := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Port:               getEnv("PORT", "8080"),
		GoEnv:              getEnv("GO_ENV", "development"),
		Auth0Domain:        getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:      getEnv("AUTH0_AUDIENCE", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", "buildmart"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSOrigins:        splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaOrderTopic:    getEnv("KAFKA_ORDER_TOPIC", "order-events"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "budget-ledger"),
	}

	var err error
	if config.SummaryCacheTTL, err = time.ParseDuration(getEnv("SUMMARY_CACHE_TTL", "5m")); err != nil {
		return nil, fmt.Errorf("SUMMARY_CACHE_TTL is not a valid duration: %w", err)
	}
	if config.RestockOnCancel, err = strconv.ParseBool(getEnv("RESTOCK_ON_CANCEL", "false")); err != nil {
		return nil, fmt.Errorf("RESTOCK_ON_CANCEL must be a boolean: %w", err)
	}
	if config.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "10"), 64); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS must be a number: %w", err)
	}
	if config.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_BURST must be an integer: %w", err)
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfig = config
	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" && c.JWTSecret == "" {
		return fmt.Errorf("either AUTH0_DOMAIN or JWT_SECRET is required")
	}
	if c.Auth0Domain != "" && c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required when AUTH0_DOMAIN is set")
	}
	if c.JWTSecret != "" && c.Auth0Domain == "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}

// UsesAuth0 reports whether tokens are validated against Auth0 JWKS
func (c *Config) UsesAuth0() bool {
	return c.Auth0Domain != ""
}

// TokenAudience is the audience tokens must carry. Self-issued HS256 tokens
// default to DefaultJWTAudience when AUTH0_AUDIENCE is unset.
func (c *Config) TokenAudience() string {
	if c.Auth0Audience != "" {
		return c.Auth0Audience
	}
	return DefaultJWTAudience
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// GetConfig returns the most recently loaded configuration
func GetConfig() *Config {
	return appConfig
}

// SetConfig sets the configuration instance (primarily for testing)
func SetConfig(cfg *Config) {
	appConfig = cfg
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
