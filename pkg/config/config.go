package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the options core.
type Config struct {
	Port string

	// Trading platform (accounts + orders)
	PlatformBaseURL string
	PlatformToken   string

	// Binance price sources
	BinanceTestnet bool

	// Price feed tuning
	FeedMinDelta      float64 // relative move required before a tick is delivered
	FeedPollInterval  time.Duration
	FeedMaxReconnects int

	// Balance reconciliation
	ResyncInterval time.Duration

	// Settled-trade history kept in memory
	HistoryCap int

	// Tradable assets catalogue
	SymbolsFile string

	// Local journal
	DBPath string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8080"),
		PlatformBaseURL:   getEnv("PLATFORM_BASE_URL", "http://localhost:3000"),
		PlatformToken:     os.Getenv("PLATFORM_TOKEN"),
		BinanceTestnet:    getEnv("BINANCE_TESTNET", "false") == "true",
		FeedMinDelta:      getEnvFloat("FEED_MIN_DELTA", 0.0001),
		FeedPollInterval:  getEnvDuration("FEED_POLL_INTERVAL", 5*time.Second),
		FeedMaxReconnects: getEnvInt("FEED_MAX_RECONNECTS", 5),
		ResyncInterval:    getEnvDuration("RESYNC_INTERVAL", time.Minute),
		HistoryCap:        getEnvInt("HISTORY_CAP", 50),
		SymbolsFile:       getEnv("SYMBOLS_FILE", "./symbols.yaml"),
		DBPath:            getEnv("DB_PATH", "./data/options.db"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
