package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Audit    AuditConfig
	Memory   MemoryConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	ChangesChannel string
	TimeoutMS      int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// AuditConfig bounds the retry of audit appends.
type AuditConfig struct {
	MaxAttempts    int
	RetryBackoffMS int
}

// MemoryConfig applies when no DSN is set. SeedProfiles maps user IDs to system
// roles, read from MEMORY_SEED_PROFILES as "alice:admin,bob:user".
type MemoryConfig struct {
	SeedProfiles map[string]string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			ChangesChannel: getEnv("REDIS_CHANGES_CHANNEL", "support-desk:changes"),
			TimeoutMS:      getEnvAsInt("REDIS_TIMEOUT_MS", 500),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Audit: AuditConfig{
			MaxAttempts:    getEnvAsInt("AUDIT_MAX_ATTEMPTS", 3),
			RetryBackoffMS: getEnvAsInt("AUDIT_RETRY_BACKOFF_MS", 50),
		},
	}

	seed, err := parsePairs(os.Getenv("MEMORY_SEED_PROFILES"))
	if err != nil {
		return nil, fmt.Errorf("invalid MEMORY_SEED_PROFILES: %w", err)
	}
	cfg.Memory.SeedProfiles = seed

	if cfg.Audit.MaxAttempts < 1 {
		return nil, fmt.Errorf("invalid AUDIT_MAX_ATTEMPTS: %d", cfg.Audit.MaxAttempts)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout bounds a single Redis dial, read or write, and each change broadcast.
func (r RedisConfig) Timeout() time.Duration {
	if r.TimeoutMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

// RetryBackoff returns the base delay between audit append attempts.
func (a AuditConfig) RetryBackoff() time.Duration {
	if a.RetryBackoffMS <= 0 {
		return 0
	}
	return time.Duration(a.RetryBackoffMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parsePairs(val string) (map[string]string, error) {
	out := map[string]string{}
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, value, ok := strings.Cut(item, ":")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("malformed entry %q", item)
		}
		out[key] = value
	}
	return out, nil
}
