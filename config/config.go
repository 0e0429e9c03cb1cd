package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// OpenRouter
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	Model             string
	Temperature       float64
	MaxTokens         int

	// Binance
	BinanceAPIURL string
	BinanceWSURL  string

	// Market data
	Symbols      string // comma-separated, empty means auto-discover
	Intervals    string // comma-separated, e.g. "1m,1h,4h"
	TopSymbols   int    // auto-discovery count when Symbols is empty
	MinVolume    float64
	CandleWindow int // candles kept per symbol+interval

	// Analysis engine
	QueueSize      int
	WorkerCount    int
	MaxConcurrent  int
	RequestTimeout time.Duration
	Lookback       int

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	MetricsAddr   string
	APIAddr       string

	// Notifications, all optional
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is applied first when
// present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}

	return &Config{
		OpenRouterAPIKey:  mustEnv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		Model:             getEnv("ANALYSIS_MODEL", "google/gemini-2.5-flash"),
		Temperature:       getEnvFloat("ANALYSIS_TEMPERATURE", 0.2),
		MaxTokens:         getEnvInt("ANALYSIS_MAX_TOKENS", 4000),

		BinanceAPIURL: getEnv("BINANCE_API_URL", "https://api.binance.com"),
		BinanceWSURL:  getEnv("BINANCE_WS_URL", "wss://stream.binance.com:9443"),

		Symbols:      getEnv("SYMBOLS", ""),
		Intervals:    getEnv("INTERVALS", "1m,1h,4h"),
		TopSymbols:   getEnvInt("TOP_SYMBOLS", 20),
		MinVolume:    getEnvFloat("MIN_QUOTE_VOLUME", 1_000_000),
		CandleWindow: getEnvInt("CANDLE_WINDOW", 500),

		QueueSize:      getEnvInt("ANALYSIS_QUEUE_SIZE", 1000),
		WorkerCount:    getEnvInt("ANALYSIS_WORKERS", 10),
		MaxConcurrent:  getEnvInt("ANALYSIS_MAX_CONCURRENT", 10),
		RequestTimeout: getEnvDuration("ANALYSIS_TIMEOUT", 30*time.Second),
		Lookback:       getEnvInt("ANALYSIS_LOOKBACK", 100),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SQLitePath:    getEnv("SQLITE_PATH", "data/screener.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		APIAddr:       getEnv("API_ADDR", ":8080"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}
}

// ParseSymbols splits the SYMBOLS list. Empty means auto-discovery.
func (c *Config) ParseSymbols() []string {
	return splitList(c.Symbols)
}

// ParseIntervals splits the INTERVALS list.
func (c *Config) ParseIntervals() []string {
	return splitList(c.Intervals)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
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
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return d
}
