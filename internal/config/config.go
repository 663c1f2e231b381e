package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	DB       DatabaseConfig
	Ingest   IngestConfig
	Schedule ScheduleConfig
	Kafka    KafkaConfig
	Grid     GridConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	RateLimitRPS    int
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver string // "sqlite" or "postgres"
	Path   string
	URL    string
}

type IngestConfig struct {
	Workers int
	Seed    uint64 // 0 picks a fresh seed for every run
	// RemoteURL forwards webhook-triggered ingestion to another instance
	// instead of running it in-process.
	RemoteURL string
	Timeout   time.Duration
}

type ScheduleConfig struct {
	Enabled  bool
	Interval time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
}

type GridConfig struct {
	Size                  int
	Spacing               float64 // degrees
	Seed                  uint64
	InsuredValuePerPerson float64
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS:    getEnvInt("RATE_LIMIT_RPS", 20),
			CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"*"}),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		DB: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:   getEnv("DB_PATH", "./data/climate-risk.db"),
			URL:    os.Getenv("DATABASE_URL"),
		},
		Ingest: IngestConfig{
			Workers:   getEnvInt("INGEST_WORKERS", 1),
			Seed:      getEnvUint64("INGEST_SEED", 0),
			RemoteURL: os.Getenv("INGEST_URL"),
			Timeout:   getEnvDuration("INGEST_TIMEOUT", 30*time.Second),
		},
		Schedule: ScheduleConfig{
			Enabled:  getEnvBool("SCHEDULE_ENABLED", false),
			Interval: getEnvDuration("SCHEDULE_INTERVAL", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "satellite-events"),
			GroupID: getEnv("KAFKA_GROUP_ID", "climate-risk"),
		},
		Grid: GridConfig{
			Size:                  getEnvInt("GRID_SIZE", 7),
			Spacing:               getEnvFloat("GRID_SPACING", 0.01),
			Seed:                  getEnvUint64("GRID_SEED", 1),
			InsuredValuePerPerson: getEnvFloat("INSURED_VALUE_PER_PERSON", 50000),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %d", c.Server.RateLimitRPS)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DB.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid DB_DRIVER: %s", c.DB.Driver)
	}

	if c.Ingest.Workers < 1 || c.Ingest.Workers > 64 {
		return fmt.Errorf("INGEST_WORKERS must be between 1 and 64, got %d", c.Ingest.Workers)
	}
	if c.Ingest.Timeout <= 0 {
		return fmt.Errorf("INGEST_TIMEOUT must be positive")
	}

	if c.Schedule.Interval < time.Minute {
		return fmt.Errorf("schedule interval must be at least 1 minute")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	if c.Grid.Size < 1 || c.Grid.Size > 25 {
		return fmt.Errorf("GRID_SIZE must be between 1 and 25, got %d", c.Grid.Size)
	}
	if c.Grid.Spacing <= 0 || c.Grid.Spacing > 1 {
		return fmt.Errorf("GRID_SPACING must be in (0, 1] degrees, got %g", c.Grid.Spacing)
	}
	if c.Grid.InsuredValuePerPerson <= 0 {
		return fmt.Errorf("INSURED_VALUE_PER_PERSON must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvUint64(key string, fallback uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if u, err := strconv.ParseUint(val, 10, 64); err == nil {
			return u
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
