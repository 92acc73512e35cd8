package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Session store backends.
const (
	SessionStoreFile  = "file"
	SessionStoreRedis = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Gateway     GatewayConfig
	Session     SessionConfig
	Redis       RedisConfig
	CORS        CORSConfig
	Log         LogConfig
	Views       ViewsConfig
	Suggestions SuggestionsConfig
	Exports     ExportsConfig
}

// GatewayConfig points the dashboard at the upstream payments API.
type GatewayConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig selects where the single identity record is persisted.
type SessionConfig struct {
	Store    string
	Dir      string
	RedisKey string
	LoginURL string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ViewsConfig tunes mounted view instances and their fetch workers.
type ViewsConfig struct {
	FetchWorkers int
	FetchBuffer  int
	IdleTTL      time.Duration
}

// SuggestionsConfig controls the bulk autocomplete fetch.
type SuggestionsConfig struct {
	Limit int
}

// ExportsConfig controls rendered export storage & download links.
type ExportsConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	ResultTTL       time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Gateway = GatewayConfig{
		BaseURL: strings.TrimRight(v.GetString("GATEWAY_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("GATEWAY_TIMEOUT"), 15*time.Second),
	}

	cfg.Session = SessionConfig{
		Store:    strings.ToLower(v.GetString("SESSION_STORE")),
		Dir:      v.GetString("SESSION_DIR"),
		RedisKey: v.GetString("SESSION_REDIS_KEY"),
		LoginURL: v.GetString("LOGIN_URL"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Views = ViewsConfig{
		FetchWorkers: v.GetInt("FETCH_WORKERS"),
		FetchBuffer:  v.GetInt("FETCH_BUFFER"),
		IdleTTL:      parseDuration(v.GetString("VIEW_IDLE_TTL"), 30*time.Minute),
	}

	cfg.Suggestions = SuggestionsConfig{Limit: v.GetInt("SUGGESTIONS_LIMIT")}

	cfg.Exports = ExportsConfig{
		Enabled:         v.GetBool("ENABLE_EXPORTS"),
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 15*time.Minute),
		ResultTTL:       parseDuration(v.GetString("EXPORTS_RESULT_TTL"), 24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("GATEWAY_BASE_URL", "http://localhost:3000")
	v.SetDefault("GATEWAY_TIMEOUT", "15s")

	v.SetDefault("SESSION_STORE", SessionStoreFile)
	v.SetDefault("SESSION_DIR", "./.session")
	v.SetDefault("SESSION_REDIS_KEY", "dashboard:identity")
	v.SetDefault("LOGIN_URL", "/login")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("FETCH_WORKERS", 4)
	v.SetDefault("FETCH_BUFFER", 64)
	v.SetDefault("VIEW_IDLE_TTL", "30m")

	v.SetDefault("SUGGESTIONS_LIMIT", 1000)

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "15m")
	v.SetDefault("EXPORTS_RESULT_TTL", "24h")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
