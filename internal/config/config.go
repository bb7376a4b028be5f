package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/investorprops/analysis-service/internal/constants"
	"github.com/investorprops/analysis-service/internal/utils"
)

const AppName = "analysis-service"

type Config struct {
	AppName string
	AppPort string
	AppUrl  string

	// Database
	DBUrl string

	// Market-data provider (OpenAI-compatible chat-completions API).
	// Empty key disables real calls; the service then refuses analyses.
	MarketDataAPIKey  string
	MarketDataBaseURL string
	MarketDataModel   string

	// Comparable-listings provider (REST).
	ComparablesAPIURL string
	ComparablesAPIKey string

	// Financing assumptions fed to the computation engine.
	DownPaymentRate    float64
	AnnualMortgageRate float64
	AmortizationYears  int

	CORSHighSecurity bool
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		utils.Logger.Info("No .env file found, using system env vars")
	}

	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		utils.Logger.Fatal("APP_PORT env var is missing")
	}
	appUrl := os.Getenv("APP_URL")
	if appUrl == "" {
		utils.Logger.Fatal("APP_URL env var is missing")
	}
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}

	marketKey := os.Getenv("MARKET_DATA_API_KEY")
	if marketKey == "" {
		utils.Logger.Warn("MARKET_DATA_API_KEY is empty; market-data provider disabled")
	}

	comparablesURL := os.Getenv("COMPARABLES_API_URL")
	if comparablesURL == "" {
		utils.Logger.Fatal("COMPARABLES_API_URL env var is missing")
	}

	return &Config{
		AppName: AppName,
		AppPort: appPort,
		AppUrl:  appUrl,
		DBUrl:   dbURL,

		MarketDataAPIKey:  marketKey,
		MarketDataBaseURL: getEnv("MARKET_DATA_BASE_URL", "https://api.perplexity.ai"),
		MarketDataModel:   getEnv("MARKET_DATA_MODEL", "sonar"),

		ComparablesAPIURL: comparablesURL,
		ComparablesAPIKey: os.Getenv("COMPARABLES_API_KEY"),

		DownPaymentRate:    getEnvFloat("DOWN_PAYMENT_RATE", constants.DefaultDownPaymentRate),
		AnnualMortgageRate: getEnvFloat("ANNUAL_MORTGAGE_RATE", constants.DefaultAnnualMortgageRate),
		AmortizationYears:  getEnvInt("AMORTIZATION_YEARS", constants.DefaultAmortizationYears),

		CORSHighSecurity: getEnvBool("CORS_HIGH_SECURITY", false),
	}
}

func (c *Config) Close() {}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		utils.Logger.Warnf("Invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		utils.Logger.Warnf("Invalid float for %s: %q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		utils.Logger.Warnf("Invalid bool for %s: %q, using %t", key, v, fallback)
		return fallback
	}
	return b
}
