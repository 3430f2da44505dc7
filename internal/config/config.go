package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

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

	// Pipeline endpoints and scheduled jobs
	PipelineAPIKey   string
	CronUpdatePrices string
	CronDividends    string
	CronSnapshots    string

	// Market data providers
	BrapiToken       string
	BrapiBaseURL     string
	YahooChartURL    string
	YahooSearchURL   string
	CVMRegistryURL   string
	HTTPTimeout      time.Duration
	QuoteTTL         time.Duration
	ProviderDelay    time.Duration
	FetchConcurrency int

	// Analytics
	BenchmarkTicker string
	RiskFreeRate    float64
	HistoryCoverage float64

	// Display currency
	BaseCurrency string
	DisplayRates map[string]float64
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
		DBUser:     getEnv("DB_USER", "wenvest"),
		DBPassword: getEnv("DB_PASSWORD", "wenvest"),
		DBName:     getEnv("DB_NAME", "wenvest"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		PipelineAPIKey: getEnv("PIPELINE_API_KEY", ""),
		// Weekdays after the B3 close, daily dividend sweep, nightly snapshot.
		CronUpdatePrices: getEnv("CRON_UPDATE_PRICES", "0 0 22 * * MON-FRI"),
		CronDividends:    getEnv("CRON_DIVIDENDS", "0 0 6 * * *"),
		CronSnapshots:    getEnv("CRON_SNAPSHOTS", "0 30 23 * * *"),

		BrapiToken:       getEnv("BRAPI_API_KEY", ""),
		BrapiBaseURL:     getEnv("BRAPI_BASE_URL", "https://brapi.dev/api"),
		YahooChartURL:    getEnv("YAHOO_CHART_URL", "https://query1.finance.yahoo.com/v8/finance/chart"),
		YahooSearchURL:   getEnv("YAHOO_SEARCH_URL", "https://query2.finance.yahoo.com/v1/finance/search"),
		CVMRegistryURL:   getEnv("CVM_REGISTRY_URL", "https://dados.cvm.gov.br/dados/FI/CAD/DADOS/cad_fi.csv"),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", 15*time.Second),
		QuoteTTL:         getEnvDuration("QUOTE_CACHE_TTL", 5*time.Minute),
		ProviderDelay:    getEnvDuration("PROVIDER_DELAY", 300*time.Millisecond),
		FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 8),

		BenchmarkTicker: getEnv("BENCHMARK_TICKER", "^BVSP"),
		RiskFreeRate:    getEnvFloat("RISK_FREE_RATE", 0),
		HistoryCoverage: getEnvFloat("HISTORY_COVERAGE", 0.6),

		BaseCurrency: getEnv("BASE_CURRENCY", "BRL"),
		DisplayRates: map[string]float64{
			"BRL": 1,
			"USD": getEnvFloat("RATE_USD", 5.15),
			"EUR": getEnvFloat("RATE_EUR", 5.58),
		},
	}

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

// PostgresURL returns the migrate-style connection URL.
func (c *Config) PostgresURL() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getEnvInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %g\n", key, raw, defaultValue)
		return defaultValue
	}
	return f
}
