package config

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	DBURL            string
	DBConnectTimeout time.Duration

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTelEnabled  bool
	OTelEndpoint string
	ServiceName  string
}

// Load reads the process environment once. A .env file in the working
// directory is applied first when present; real env vars win over it.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		DBURL:            buildDBURL(),
		DBConnectTimeout: time.Duration(getEnvInt("DB_CONNECT_TIMEOUT_MS", 5000)) * time.Millisecond,

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", 0)) * time.Second,
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "usuarios-api"),
	}
}

// buildDBURL assembles a postgres URL from the credentials and a connection
// descriptor. DB_DSN ("host[:port]/dbname") takes precedence over the
// individual DB_HOST/DB_PORT/DB_NAME parts.
func buildDBURL() string {
	user := getEnv("DB_USER", "usuarios")
	pass := getEnv("DB_PASSWORD", "usuarios")
	ssl := getEnv("DB_SSLMODE", "disable")

	locator := getEnv("DB_DSN", "")
	if locator == "" {
		host := getEnv("DB_HOST", "127.0.0.1")
		port := getEnv("DB_PORT", "5432")
		name := getEnv("DB_NAME", "usuarios")
		locator = host + ":" + port + "/" + name
	}

	host, name, _ := strings.Cut(locator, "/")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     host,
		Path:     "/" + name,
		RawQuery: "sslmode=" + url.QueryEscape(ssl),
	}

	return u.String()
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)

		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return b
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
