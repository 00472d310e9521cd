package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	SQLite       SQLiteConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Uploads      UploadsConfig
	Escalation   EscalationConfig
	Notification NotificationConfig
	IDs          IDConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitBytes        int
}

// StoreConfig selects the issue/user store backend.
type StoreConfig struct {
	Driver               string
	ConnectMaxElapsedSec int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// SQLiteConfig holds the embedded database location.
type SQLiteConfig struct {
	Path string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	EventsStream string
	StreamMaxLen int64
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// UploadsConfig controls where proof files go and how references resolve.
type UploadsConfig struct {
	Dir           string
	MaxBytes      int64
	MaxFiles      int
	RemoteURL     string
	RemoteTimeout time.Duration
	PublicURL     string
	Bucket        string
}

// EscalationConfig holds the escalation time gate.
type EscalationConfig struct {
	MinHours int
}

// NotificationConfig holds outbound notification settings.
type NotificationConfig struct {
	EmailFrom       string
	EmailFromName   string
	EscalationEmail string
	SendgridAPIKey  string
}

// IDConfig configures reference code generation.
type IDConfig struct {
	SnowflakeNode int64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres))
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", driver)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "feedx-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 20*1024*1024),
		},
		Store: StoreConfig{
			Driver:               driver,
			ConnectMaxElapsedSec: getEnvAsInt("STORE_CONNECT_MAX_ELAPSED_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "feedx.db"),
		},
		Redis: RedisConfig{
			Addr:         os.Getenv("REDIS_ADDR"),
			Password:     os.Getenv("REDIS_PASSWORD"),
			DB:           redisDB,
			EventsStream: getEnv("REDIS_EVENTS_STREAM", "feedx:issue-events"),
			StreamMaxLen: int64(getEnvAsInt("REDIS_EVENTS_STREAM_MAXLEN", 10000)),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Uploads: UploadsConfig{
			Dir:           getEnv("UPLOADS_DIR", "public/uploads"),
			MaxBytes:      int64(getEnvAsInt("UPLOAD_MAX_BYTES", 5*1024*1024)),
			MaxFiles:      getEnvAsInt("UPLOAD_MAX_FILES", 3),
			RemoteURL:     os.Getenv("UPLOAD_REMOTE_URL"),
			RemoteTimeout: time.Duration(getEnvAsInt("UPLOAD_REMOTE_TIMEOUT_SECONDS", 30)) * time.Second,
			PublicURL:     os.Getenv("OBJECT_STORAGE_PUBLIC_URL"),
			Bucket:        getEnv("OBJECT_STORAGE_BUCKET", "issue-proofs"),
		},
		Escalation: EscalationConfig{
			MinHours: getEnvAsInt("ESCALATION_MIN_HOURS", 48),
		},
		Notification: NotificationConfig{
			EmailFrom:       getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			EmailFromName:   getEnv("NOTIFY_EMAIL_FROM_NAME", "FEEDX"),
			EscalationEmail: os.Getenv("NOTIFY_ESCALATION_EMAIL"),
			SendgridAPIKey:  os.Getenv("SENDGRID_API_KEY"),
		},
		IDs: IDConfig{
			SnowflakeNode: int64(getEnvAsInt("SNOWFLAKE_NODE", 1)),
		},
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

// ConnectMaxElapsed bounds startup connection retries.
func (s StoreConfig) ConnectMaxElapsed() time.Duration {
	if s.ConnectMaxElapsedSec <= 0 {
		return 0
	}
	return time.Duration(s.ConnectMaxElapsedSec) * time.Second
}

// MinAge returns the dwell time before an issue may be escalated.
func (e EscalationConfig) MinAge() time.Duration {
	if e.MinHours <= 0 {
		return 48 * time.Hour
	}
	return time.Duration(e.MinHours) * time.Hour
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
