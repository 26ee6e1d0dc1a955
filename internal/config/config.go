package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PivotCurrency is the single reference currency all conversions route through.
const PivotCurrency = "EUR"

// Config holds application configuration
type Config struct {
	// Server
	Env  string
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth
	JWTSecret      string
	PipelineAPIKey string

	// Exchange rates
	RatesFeedURL     string
	RatesFeedTimeout time.Duration
	RateCurrencies   []string

	// Ledger rules (owners, heuristics); empty means compiled defaults
	RulesFile string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "crocus"),
		DBPassword: getEnv("DB_PASSWORD", "crocus"),
		DBName:     getEnv("DB_NAME", "crocus"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:      getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		PipelineAPIKey: os.Getenv("PIPELINE_API_KEY"),

		RatesFeedURL: getEnv("RATES_FEED_URL", ""),
		RulesFile:    os.Getenv("LEDGER_RULES_FILE"),
	}

	if pivot := strings.ToUpper(getEnv("PIVOT_CURRENCY", PivotCurrency)); pivot != PivotCurrency {
		return nil, fmt.Errorf("unsupported PIVOT_CURRENCY %q: only %s is supported", pivot, PivotCurrency)
	}

	timeoutStr := getEnv("RATES_FEED_TIMEOUT", "15s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil || timeout <= 0 {
		log.Printf("Warning: invalid RATES_FEED_TIMEOUT value '%s', falling back to 15s\n", timeoutStr)
		timeout = 15 * time.Second
	}
	config.RatesFeedTimeout = timeout

	config.RateCurrencies = parseCurrencyList(getEnv("RATE_CURRENCIES", "USD,GBP,CHF,TRY,AED,THB"))

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// Set replaces the active configuration. Used by tests and the CLI.
func Set(c *Config) {
	appConfig = c
}

// DSN returns the PostgreSQL connection string
func (c *Config) DSN() string {
	return "host=" + c.DBHost + " port=" + c.DBPort + " user=" + c.DBUser +
		" password=" + c.DBPassword + " dbname=" + c.DBName + " sslmode=" + c.DBSSLMode
}

// MigrationURL returns the postgres URL used by golang-migrate.
func (c *Config) MigrationURL() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort +
		"/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

func parseCurrencyList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" || code == PivotCurrency {
			continue
		}
		out = append(out, code)
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
