package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Relationships RelationshipConfig
	RateLimit     RateLimitConfig
	Log           LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	Environment     string // "development", "production", "test"
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
	AutoMigrate    bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	// JWTSecret verifies HS256 bearer tokens. Token issuance lives elsewhere.
	JWTSecret string
	Issuer    string
}

type RelationshipConfig struct {
	MaxAttempts        int
	RetryBackoff       time.Duration
	LockTimeout        time.Duration
	DefaultSearchLimit int
	MaxSearchLimit     int
}

type RateLimitConfig struct {
	FriendRequests int64
	Blocks         int64
	Window         time.Duration
}

type LogConfig struct {
	Level string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from the environment. Values from an optional
// dotenv file (ENV_FILE, default ".env") never override variables that are
// already set.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			Environment:     getEnv("APP_ENV", "development"),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "pairgraph"),
			Password:       getEnv("DB_PASSWORD", "pairgraph"),
			DBName:         getEnv("DB_NAME", "pairgraph"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConns:       int32(getEnvInt("DB_MAX_CONNS", 25)),
			MigrationsPath: getEnvNonEmpty("DB_MIGRATIONS_PATH", "migrations"),
			AutoMigrate:    getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
		Relationships: RelationshipConfig{
			MaxAttempts:        getEnvInt("RELATIONSHIP_MAX_ATTEMPTS", 3),
			RetryBackoff:       getEnvDuration("RELATIONSHIP_RETRY_BACKOFF", 25*time.Millisecond),
			LockTimeout:        getEnvDuration("RELATIONSHIP_LOCK_TIMEOUT", 2*time.Second),
			DefaultSearchLimit: getEnvInt("FRIEND_SEARCH_DEFAULT_LIMIT", 20),
			MaxSearchLimit:     getEnvInt("FRIEND_SEARCH_MAX_LIMIT", 50),
		},
		RateLimit: RateLimitConfig{
			FriendRequests: int64(getEnvInt("RATE_LIMIT_FRIEND_REQUESTS", 30)),
			Blocks:         int64(getEnvInt("RATE_LIMIT_BLOCKS", 30)),
			Window:         getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Log: LogConfig{
			Level: getEnvNonEmpty("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.Server.Environment == "production" && strings.TrimSpace(c.Auth.JWTSecret) == "" {
		problems = append(problems, "JWT_SECRET is required in production")
	}
	if c.Relationships.MaxAttempts < 1 {
		problems = append(problems, "RELATIONSHIP_MAX_ATTEMPTS must be at least 1")
	}
	if c.Relationships.LockTimeout < 0 || c.Relationships.RetryBackoff < 0 {
		problems = append(problems, "relationship timeouts must not be negative")
	}
	if c.Relationships.MaxSearchLimit < 1 || c.Relationships.DefaultSearchLimit < 1 {
		problems = append(problems, "friend search limits must be positive")
	} else if c.Relationships.DefaultSearchLimit > c.Relationships.MaxSearchLimit {
		problems = append(problems, "FRIEND_SEARCH_DEFAULT_LIMIT must not exceed FRIEND_SEARCH_MAX_LIMIT")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvNonEmpty(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		if strings.TrimSpace(value) != "" {
			return value
		}
		return defaultValue
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("250ms", "2s").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}
