package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort  string
	StoreDriver string
	AutoMigrate bool

	// NATSURL enables publishing notifications to NATSSubject when set.
	NATSURL          string
	NATSSubject      string
	NotifyBufferSize int

	AdjustMaxRetries int
	LogLevel         slog.Level
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBName:           getEnv("DB_NAME", "wallet"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		StoreDriver:      getEnv("STORE_DRIVER", DriverPostgres),
		AutoMigrate:      getEnvBool("AUTO_MIGRATE", false),
		NATSURL:          os.Getenv("NATS_URL"),
		NATSSubject:      getEnv("NATS_SUBJECT", "wallet.notifications"),
		NotifyBufferSize: getEnvInt("NOTIFY_BUFFER_SIZE", 256),
		AdjustMaxRetries: getEnvInt("ADJUST_MAX_RETRIES", 5),
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DBHost == "" || c.DBName == "" || c.DBUser == "" {
			return fmt.Errorf("missing required env for database: DB_HOST/DB_USER/DB_NAME")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid store driver %q, must be %q or %q", c.StoreDriver, DriverPostgres, DriverMemory)
	}
	if c.NotifyBufferSize <= 0 {
		return fmt.Errorf("NOTIFY_BUFFER_SIZE must be positive")
	}
	if c.AdjustMaxRetries < 0 {
		return fmt.Errorf("ADJUST_MAX_RETRIES must not be negative")
	}
	return nil
}

// GetDBConnectionString returns a lib/pq keyword/value DSN.
func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
