// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Payment gateway
	GatewayProvider   string // "paystack" or "stripe"
	PaystackSecretKey string
	PaystackBaseURL   string
	StripeSecretKey   string
	GatewayTimeout    time.Duration

	// PublicBaseURL is the externally reachable base URL; the gateway
	// redirects payers to PublicBaseURL + /v1/payments/callback.
	PublicBaseURL string

	// Redirect targets after the payment callback is handled
	SuccessRedirectURL string
	ErrorRedirectURL   string

	// Registration pricing (naira, before gateway surcharge)
	CooperativeFee float64
	MemberFee      float64

	// Notifications (provider HTTP APIs; empty disables the channel)
	EmailAPIURL string
	EmailAPIKey string
	EmailSender string
	SMSAPIURL   string
	SMSAPIKey   string
	SMSSender   string

	// Operations
	AdminSecret     string        // Admin API secret
	RateLimitRPM    int           // Requests per minute per client
	PendingSweepAge time.Duration // Age at which stuck PENDING registrations are flagged
	OTLPEndpoint    string        // OpenTelemetry collector (optional)
}

const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultGateway         = "paystack"
	DefaultPaystackBaseURL = "https://api.paystack.co"
	DefaultGatewayTimeout  = 15 * time.Second
	DefaultCooperativeFee  = 5000.0
	DefaultMemberFee       = 1000.0
	DefaultRateLimit       = 120
	DefaultSweepAge        = 24 * time.Hour
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		GatewayProvider:    getEnv("GATEWAY_PROVIDER", DefaultGateway),
		PaystackSecretKey:  os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:    getEnv("PAYSTACK_BASE_URL", DefaultPaystackBaseURL),
		StripeSecretKey:    os.Getenv("STRIPE_SECRET_KEY"),
		GatewayTimeout:     getEnvDuration("GATEWAY_TIMEOUT", DefaultGatewayTimeout),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:"+getEnv("PORT", DefaultPort)),
		SuccessRedirectURL: getEnv("SUCCESS_REDIRECT_URL", "/registration/success"),
		ErrorRedirectURL:   getEnv("ERROR_REDIRECT_URL", "/registration/error"),
		CooperativeFee:     getEnvFloat("COOPERATIVE_FEE", DefaultCooperativeFee),
		MemberFee:          getEnvFloat("MEMBER_FEE", DefaultMemberFee),
		EmailAPIURL:        os.Getenv("EMAIL_API_URL"),
		EmailAPIKey:        os.Getenv("EMAIL_API_KEY"),
		EmailSender:        getEnv("EMAIL_SENDER", "no-reply@coopcentral.ng"),
		SMSAPIURL:          os.Getenv("SMS_API_URL"),
		SMSAPIKey:          os.Getenv("SMS_API_KEY"),
		SMSSender:          getEnv("SMS_SENDER", "CoopCentral"),
		AdminSecret:        os.Getenv("ADMIN_SECRET"),
		RateLimitRPM:       int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
		PendingSweepAge:    getEnvDuration("PENDING_SWEEP_AGE", DefaultSweepAge),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	switch c.GatewayProvider {
	case "paystack":
		if c.PaystackSecretKey == "" {
			return fmt.Errorf("PAYSTACK_SECRET_KEY is required when GATEWAY_PROVIDER=paystack")
		}
	case "stripe":
		if c.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required when GATEWAY_PROVIDER=stripe")
		}
	default:
		return fmt.Errorf("GATEWAY_PROVIDER must be \"paystack\" or \"stripe\", got %q", c.GatewayProvider)
	}

	if c.CooperativeFee < 0 || c.MemberFee < 0 {
		return fmt.Errorf("registration fees must not be negative")
	}

	if c.IsProduction() && c.AdminSecret == "" {
		return fmt.Errorf("ADMIN_SECRET is required in production")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
