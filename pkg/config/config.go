// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Memory, Cache, Redis, Kafka, Postgres, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Memory   MemoryConfig   `yaml:"memory"`
	Cache    CacheConfig    `yaml:"cache"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// BuildRatePerSecond limits rebuild requests per collection; 0 disables.
	BuildRatePerSecond float64 `yaml:"buildRatePerSecond"`
	BuildBurst         int     `yaml:"buildBurst"`
}

// MemoryConfig controls where collections live and how they are indexed
// and queried.
type MemoryConfig struct {
	Root             string   `yaml:"root"`
	SidecarName      string   `yaml:"sidecarName"`
	Extensions       []string `yaml:"extensions"`
	K1               float64  `yaml:"k1"`
	B                float64  `yaml:"b"`
	PreviewLength    int      `yaml:"previewLength"`
	DefaultTopK      int      `yaml:"defaultTopK"`
	MaxTopK          int      `yaml:"maxTopK"`
	BuildConcurrency int      `yaml:"buildConcurrency"`
}

// Validate checks the memory settings that cannot be defaulted.
func (m MemoryConfig) Validate() error {
	if strings.TrimSpace(m.Root) == "" {
		return fmt.Errorf("memory.root is required")
	}
	if m.K1 < 0 {
		return fmt.Errorf("memory.k1 must be non-negative, got %v", m.K1)
	}
	if m.B < 0 || m.B > 1 {
		return fmt.Errorf("memory.b must be within [0, 1], got %v", m.B)
	}
	if m.DefaultTopK <= 0 || m.MaxTopK < m.DefaultTopK {
		return fmt.Errorf("memory.defaultTopK must be positive and not above maxTopK")
	}
	return nil
}

// CacheConfig selects the query-result cache backend: none, memory or redis.
type CacheConfig struct {
	Backend string `yaml:"backend"`
	Size    int    `yaml:"size"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings. Event publishing is
// disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexBuilt   string `yaml:"indexBuilt"`
	MemoryEvents string `yaml:"memoryEvents"`
}

// PostgresConfig holds PostgreSQL connection parameters. Build history is
// disabled when Host is empty.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Memory.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			ReadTimeout:        30 * time.Second,
			WriteTimeout:       30 * time.Second,
			ShutdownTimeout:    15 * time.Second,
			BuildRatePerSecond: 0.2,
			BuildBurst:         2,
		},
		Memory: MemoryConfig{
			Root:             "novels",
			SidecarName:      ".yunshu_memory.json",
			Extensions:       []string{".txt"},
			K1:               1.5,
			B:                0.75,
			PreviewLength:    200,
			DefaultTopK:      3,
			MaxTopK:          50,
			BuildConcurrency: 4,
		},
		Cache: CacheConfig{
			Backend: "memory",
			Size:    1024,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Topics: KafkaTopics{
				IndexBuilt:   "index.built",
				MemoryEvents: "memory-events",
			},
		},
		Postgres: PostgresConfig{
			Port:            5432,
			Database:        "novelmemory",
			User:            "novelmemory",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads NM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("NM_MEMORY_ROOT"); v != "" {
		cfg.Memory.Root = v
	}
	if v := os.Getenv("NM_MEMORY_K1"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Memory.K1 = f
		}
	}
	if v := os.Getenv("NM_MEMORY_B"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Memory.B = f
		}
	}
	if v := os.Getenv("NM_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("NM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("NM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("NM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("NM_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("NM_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("NM_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("NM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NM_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("NM_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
