package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// ClientSettings drives the local (offline-capable) side.
type ClientSettings struct {
	DBPath      string
	RemoteURL   string
	Token       string
	HTTPTimeout time.Duration
	LogLevel    string
}

func LoadClientSettings() ClientSettings {
	s := ClientSettings{
		DBPath:      stringFromEnv("LEDGER_DB_PATH", "ledger.db"),
		RemoteURL:   strings.TrimRight(stringFromEnv("LEDGER_REMOTE_URL", "http://localhost:8080"), "/"),
		Token:       strings.TrimSpace(os.Getenv("LEDGER_TOKEN")),
		HTTPTimeout: time.Duration(intFromEnv("LEDGER_HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}
	return s
}

// ServerSettings drives the remote authoritative store.
type ServerSettings struct {
	Port           string
	Production     bool
	AllowedOrigins []string
	RedisAddress   string
	PubSubTopic    string
	SkipMigrations bool
	// RateLimit caps requests per client IP per RateWindow; zero disables it.
	RateLimit  int64
	RateWindow time.Duration
}

func LoadServerSettings() ServerSettings {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = stringFromEnv("PORT", "8080")
	}
	s := ServerSettings{
		Port:           port,
		Production:     strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production"),
		AllowedOrigins: splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),
		RedisAddress:   strings.TrimSpace(os.Getenv("REDIS_ADDRESS")),
		PubSubTopic:    strings.TrimSpace(os.Getenv("PUBSUB_TOPIC")),
		SkipMigrations: strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true"),
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		s.RateLimit = int64(intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600))
		s.RateWindow = time.Duration(intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
	}
	return s
}

func stringFromEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
