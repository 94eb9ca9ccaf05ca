package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Provider ProviderConfig
	Sync     SyncConfig
	Upload   UploadConfig
	Auth     AuthConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	HubLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Driver     string // "postgres" | "sqlite"
	Connection string
}

type ProviderConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	PageSize      int
	MaxRetries    int
	RetryInterval time.Duration
	MaxEventBytes int
}

type SyncConfig struct {
	Interval          time.Duration // 0 disables the scheduler
	OnStartup         bool
	GuardEmptyCatalog bool
	LockTTL           time.Duration
}

type UploadConfig struct {
	MaxBytes     int64
	AllowedMimes []string
}

type AuthConfig struct {
	JwtSecret string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			HubLogFilePath:     getEnv("HUB_LOG_FILE_PATH", "logs/hub.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Provider: ProviderConfig{
			BaseURL:       getEnv("FLOWISE_BASE_URL", "http://localhost:3001"),
			APIKey:        getEnv("FLOWISE_API_KEY", ""),
			Timeout:       getEnvAsDuration("FLOWISE_TIMEOUT", 30*time.Second),
			PageSize:      getEnvAsInt("FLOWISE_PAGE_SIZE", 0),
			MaxRetries:    getEnvAsInt("FLOWISE_MAX_RETRIES", 3),
			RetryInterval: getEnvAsDuration("FLOWISE_RETRY_INTERVAL", 500*time.Millisecond),
			MaxEventBytes: getEnvAsInt("FLOWISE_MAX_EVENT_BYTES", 1<<20),
		},
		Sync: SyncConfig{
			Interval:          getEnvAsDuration("SYNC_INTERVAL", 0),
			OnStartup:         getEnvAsBool("SYNC_ON_STARTUP", false),
			GuardEmptyCatalog: getEnvAsBool("SYNC_GUARD_EMPTY_CATALOG", false),
			LockTTL:           getEnvAsDuration("SYNC_LOCK_TTL", 5*time.Minute),
		},
		Upload: UploadConfig{
			MaxBytes:     int64(getEnvAsInt("UPLOAD_MAX_BYTES", 10<<20)),
			AllowedMimes: getEnvAsList("UPLOAD_ALLOWED_MIMES", []string{"image/*", "application/pdf", "text/*", "audio/*"}),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "chatproxy-be"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := strings.TrimSpace(getEnv(key, ""))
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := strings.TrimSpace(getEnv(key, ""))
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
