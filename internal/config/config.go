package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends accepted by STORAGE
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	Storage  string
	LogLevel string

	JWTAccessSecret    string
	JWTAccessExpiresIn time.Duration
	JWTIssuer          string
	BcryptCost         int

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	CheckoutURL        string
	CheckoutMerchantID string
	CheckoutSecret     string
	CheckoutSuccessURL string
	CheckoutCancelURL  string

	ReconcileSchedule  string
	CORSAllowedOrigins []string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		DBConn:   getEnv("DB_CONN", "host=localhost port=5432 user=test password=test dbname=recipes sslmode=disable"),
		Storage:  strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		JWTAccessSecret:    getEnv("JWT_ACCESS_SECRET", "secret"),
		JWTAccessExpiresIn: getEnvDuration("JWT_ACCESS_EXPIRES_IN", 24*time.Hour),
		JWTIssuer:          getEnv("JWT_ISSUER", "recipe-service"),
		BcryptCost:         getEnvInt("BCRYPT_COST", 10),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "no-reply@recipes.local"),

		CheckoutURL:        getEnv("CHECKOUT_URL", "https://checkout.example.com/api/sessions"),
		CheckoutMerchantID: getEnv("CHECKOUT_MERCHANT_ID", ""),
		CheckoutSecret:     getEnv("CHECKOUT_SECRET", ""),
		CheckoutSuccessURL: getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/payment/success"),
		CheckoutCancelURL:  getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/payment/cancel"),

		ReconcileSchedule:  getEnv("RECONCILE_SCHEDULE", "@every 1h"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if cfg.Storage != StoragePostgres && cfg.Storage != StorageMemory {
		return nil, fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.Storage)
	}
	if cfg.Storage == StoragePostgres && cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.JWTAccessExpiresIn <= 0 {
		return nil, fmt.Errorf("JWT_ACCESS_EXPIRES_IN must be positive")
	}

	return cfg, nil
}

// MailEnabled reports whether outgoing notifications are configured
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
