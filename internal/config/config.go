package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/trogers1052/stock-dataset-compiler/internal/scheduler"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Pipeline PipelineConfig
	Universe UniverseConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled        bool
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string

	// Retention prunes run reports older than this; 0 keeps them forever
	Retention         time.Duration
	RetentionSchedule string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	Topic         string
	RequestTopic  string
	ConsumerGroup string
}

// RedisConfig holds Redis configuration for the universe cache
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// PipelineConfig holds dataset compilation configuration
type PipelineConfig struct {
	Indices         []string
	TrainingPeriod  string
	InferencePeriod string
	Workers         int
	FetchTimeout    time.Duration
	RunTimeout      time.Duration
	ProgressEvery   int
	Seed            uint64
	DropColumns     []string
	ExportDir       string
	Schedule        string
}

// UniverseConfig holds symbol universe configuration
type UniverseConfig struct {
	SourceURL    string
	ArtifactPath string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from environment variables, after loading a .env file if one exists
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Enabled:           getEnvAsBool("DB_ENABLED", true),
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnv("DB_PORT", "5432"),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", "postgres"),
			DBName:            getEnv("DB_NAME", "datasets"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MigrationsPath:    getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
			Retention:         getEnvAsDuration("RUNS_RETENTION", 0),
			RetentionSchedule: getEnv("RUNS_RETENTION_SCHEDULE", "@daily"),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:       getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:         getEnv("KAFKA_TOPIC", "dataset-events"),
			RequestTopic:  getEnv("KAFKA_REQUEST_TOPIC", "dataset-requests"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "dataset-compiler"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("REDIS_UNIVERSE_TTL", 24*time.Hour),
		},
		Pipeline: PipelineConfig{
			Indices:         getEnvAsList("PIPELINE_INDICES", []string{"^GSPC", "^VIX"}),
			TrainingPeriod:  getEnv("PIPELINE_TRAINING_PERIOD", "5y"),
			InferencePeriod: getEnv("PIPELINE_INFERENCE_PERIOD", "2y"),
			Workers:         getEnvAsInt("PIPELINE_WORKERS", 4),
			FetchTimeout:    getEnvAsDuration("PIPELINE_FETCH_TIMEOUT", 30*time.Second),
			RunTimeout:      getEnvAsDuration("PIPELINE_RUN_TIMEOUT", 45*time.Minute),
			ProgressEvery:   getEnvAsInt("PIPELINE_PROGRESS_EVERY", 50),
			Seed:            uint64(getEnvAsInt("PIPELINE_SEED", 0)),
			DropColumns:     getEnvAsList("PIPELINE_DROP_COLUMNS", []string{"^VIX-volume"}),
			ExportDir:       getEnv("PIPELINE_EXPORT_DIR", ""),
			Schedule:        getEnv("PIPELINE_SCHEDULE", ""),
		},
		Universe: UniverseConfig{
			SourceURL:    getEnv("UNIVERSE_SOURCE_URL", "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"),
			ArtifactPath: getEnv("UNIVERSE_ARTIFACT_PATH", "data/sp500_tickers.json"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	p := c.Pipeline
	if len(p.Indices) == 0 {
		return fmt.Errorf("PIPELINE_INDICES must list at least one index")
	}
	if p.TrainingPeriod == "" || p.InferencePeriod == "" {
		return fmt.Errorf("PIPELINE_TRAINING_PERIOD and PIPELINE_INFERENCE_PERIOD are required")
	}
	if p.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be at least 1, got %d", p.Workers)
	}
	if p.FetchTimeout <= 0 || p.RunTimeout <= 0 {
		return fmt.Errorf("PIPELINE_FETCH_TIMEOUT and PIPELINE_RUN_TIMEOUT must be positive")
	}
	if p.Schedule != "" {
		if _, err := scheduler.Parser.Parse(p.Schedule); err != nil {
			return fmt.Errorf("invalid PIPELINE_SCHEDULE %q: %w", p.Schedule, err)
		}
	}
	if c.Database.Retention < 0 {
		return fmt.Errorf("RUNS_RETENTION must not be negative")
	}
	if c.Database.Retention > 0 {
		if _, err := scheduler.Parser.Parse(c.Database.RetentionSchedule); err != nil {
			return fmt.Errorf("invalid RUNS_RETENTION_SCHEDULE %q: %w", c.Database.RetentionSchedule, err)
		}
	}
	if c.Universe.ArtifactPath == "" {
		return fmt.Errorf("UNIVERSE_ARTIFACT_PATH is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when Kafka is enabled")
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the HTTP listen address
func (s *ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList reads a comma-separated list, ignoring blank entries
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
