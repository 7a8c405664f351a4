package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from the environment.
type Config struct {
	AppEnv   string
	LogLevel string

	HTTPListenAddr string
	PublicBasePath string
	PublicBaseURL  string
	AllowedHosts   []string

	DatabaseURL    string
	DatabaseSchema string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout time.Duration

	MetaVerifyToken   string
	MetaAccessToken   string
	MetaPhoneNumberID string
	MetaBaseURL       string
	MetaTimeout       time.Duration

	Timezone    string
	DefaultCity string

	MetricsNamespace string
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8080"),
		PublicBasePath: getEnv("PUBLIC_BASE_PATH", ""),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", ""),
		AllowedHosts:   splitList(getEnv("ALLOWED_HOSTS", "")),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabaseSchema: getEnv("DATABASE_SCHEMA", "public"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisTLS:      getEnvBool("REDIS_TLS", false),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTimeout: getEnvDuration("GEMINI_TIMEOUT", 30*time.Second),

		MetaVerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
		MetaAccessToken:   os.Getenv("META_ACCESS_TOKEN"),
		MetaPhoneNumberID: os.Getenv("META_PHONE_NUMBER_ID"),
		MetaBaseURL:       getEnv("META_BASE_URL", "https://graph.facebook.com/v22.0"),
		MetaTimeout:       getEnvDuration("META_TIMEOUT", 10*time.Second),

		Timezone:    getEnv("BOT_TIMEZONE", "America/Bogota"),
		DefaultCity: getEnv("BOT_DEFAULT_CITY", "Quibdó"),

		MetricsNamespace: getEnv("METRICS_NAMESPACE", "parchaoo"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
