package infra

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config is the runtime configuration of the analyzer.
type Config struct {
	HTTPPort         string        `yaml:"http_port"`
	GRPCPort         string        `yaml:"grpc_port"`
	MetricsPort      string        `yaml:"metrics_port"`
	LogLevel         string        `yaml:"log_level"`
	StorageDriver    string        `yaml:"storage_driver"`
	DatabaseDSN      string        `yaml:"db_dsn"`
	DatabaseHost     string        `yaml:"db_host"`
	DatabasePort     string        `yaml:"db_port"`
	DatabaseUser     string        `yaml:"db_user"`
	DatabasePassword string        `yaml:"db_password"`
	DatabaseName     string        `yaml:"db_name"`
	SQLitePath       string        `yaml:"sqlite_path"`
	ExtractorCommand []string      `yaml:"extractor_command"`
	ExtractorTimeout time.Duration `yaml:"extractor_timeout"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	MonitorPath      string        `yaml:"monitor_path"`
	WorkerCount      int           `yaml:"worker_count"`
	TailSize         int           `yaml:"tail_size"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		HTTPPort:         "8080",
		GRPCPort:         "50051",
		MetricsPort:      "2112",
		LogLevel:         "info",
		StorageDriver:    StorageMemory,
		SQLitePath:       "kpm.db",
		ExtractorTimeout: 30 * time.Second,
		PollInterval:     2 * time.Second,
		WorkerCount:      4,
		TailSize:         50,
	}
}

// LoadConfig layers the optional YAML file at path (or $KPM_CONFIG) and the
// environment over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("KPM_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = getEnv("GRPC_PORT", cfg.GRPCPort)
	cfg.MetricsPort = getEnv("METRICS_PORT", cfg.MetricsPort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.StorageDriver = strings.ToLower(getEnv("STORAGE_DRIVER", cfg.StorageDriver))
	cfg.DatabaseDSN = getEnv("DB_DSN", cfg.DatabaseDSN)
	cfg.DatabaseHost = getEnv("DB_HOST", cfg.DatabaseHost)
	cfg.DatabasePort = getEnv("DB_PORT", cfg.DatabasePort)
	cfg.DatabaseUser = getEnv("DB_USER", cfg.DatabaseUser)
	cfg.DatabasePassword = getEnv("DB_PASSWORD", cfg.DatabasePassword)
	cfg.DatabaseName = getEnv("DB_NAME", cfg.DatabaseName)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	if command := strings.Fields(os.Getenv("EXTRACTOR_COMMAND")); len(command) > 0 {
		cfg.ExtractorCommand = command
	}
	cfg.ExtractorTimeout = getEnvMillis("EXTRACTOR_TIMEOUT_MS", cfg.ExtractorTimeout)
	cfg.PollInterval = getEnvMillis("POLL_INTERVAL_MS", cfg.PollInterval)
	cfg.MonitorPath = getEnv("MONITOR_PATH", cfg.MonitorPath)
	cfg.WorkerCount = getEnvInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.TailSize = getEnvInt("TAIL_SIZE", cfg.TailSize)
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory, StoragePostgres, StorageSQLite:
	default:
		return errors.Newf("unknown storage driver %q", c.StorageDriver)
	}
	if c.PollInterval <= 0 {
		return errors.Newf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.ExtractorTimeout <= 0 {
		return errors.Newf("extractor timeout must be positive, got %s", c.ExtractorTimeout)
	}
	if c.WorkerCount < 1 {
		return errors.Newf("worker count must be at least 1, got %d", c.WorkerCount)
	}
	return nil
}

// LogConfig writes the effective configuration with secrets redacted.
func LogConfig(ctx context.Context, logger *Logger, cfg Config) {
	logger.Printf(ctx, "HTTP_PORT=%s", cfg.HTTPPort)
	logger.Printf(ctx, "GRPC_PORT=%s", cfg.GRPCPort)
	logger.Printf(ctx, "METRICS_PORT=%s", emptyFallback(cfg.MetricsPort, "(disabled)"))
	logger.Printf(ctx, "LOG_LEVEL=%s", cfg.LogLevel)
	logger.Printf(ctx, "STORAGE_DRIVER=%s", cfg.StorageDriver)
	if cfg.DatabaseDSN != "" {
		logger.Printf(ctx, "DB_DSN set (length %d)", len(cfg.DatabaseDSN))
	} else {
		logger.Println(ctx, "DB_DSN not provided")
	}
	logger.Printf(ctx, "DB_HOST=%s", emptyFallback(cfg.DatabaseHost, "(not set)"))
	logger.Printf(ctx, "DB_PORT=%s", emptyFallback(cfg.DatabasePort, "(not set)"))
	logger.Printf(ctx, "DB_USER=%s", emptyFallback(cfg.DatabaseUser, "(not set)"))
	if cfg.DatabasePassword != "" {
		logger.Println(ctx, "DB_PASSWORD set (redacted)")
	} else {
		logger.Println(ctx, "DB_PASSWORD not provided")
	}
	logger.Printf(ctx, "DB_NAME=%s", emptyFallback(cfg.DatabaseName, "(not set)"))
	logger.Printf(ctx, "SQLITE_PATH=%s", cfg.SQLitePath)
	logger.Printf(ctx, "EXTRACTOR_COMMAND=%s", emptyFallback(strings.Join(cfg.ExtractorCommand, " "), "(in-process)"))
	logger.Printf(ctx, "EXTRACTOR_TIMEOUT=%s", cfg.ExtractorTimeout)
	logger.Printf(ctx, "POLL_INTERVAL=%s", cfg.PollInterval)
	logger.Printf(ctx, "MONITOR_PATH=%s", emptyFallback(cfg.MonitorPath, "(not set)"))
	logger.Printf(ctx, "WORKER_COUNT=%d", cfg.WorkerCount)
	logger.Printf(ctx, "TAIL_SIZE=%d", cfg.TailSize)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvMillis(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return fallback
}

func emptyFallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
