// Package config provides configuration loading, defaults and validation for
// alchemist. Every binary (apiserver, worker, CLI) loads the same Config.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// HTTP server
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig controls the gin HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	TemplatesDir    string        `mapstructure:"templates_dir"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ─────────────────────────────────────────────────────────────────────────────
// Chemistry
// ─────────────────────────────────────────────────────────────────────────────

// DatasetConfig locates the thermodynamic and stoichiometric tables.
type DatasetConfig struct {
	// Source is "file" (Dir) or "minio" (MinIO.Bucket).
	Source    string `mapstructure:"source"`
	Dir       string `mapstructure:"dir"`
	ThermoKey string `mapstructure:"thermo_key"`
	StoichKey string `mapstructure:"stoich_key"`
}

// PredictorConfig bounds the reaction search.
type PredictorConfig struct {
	MaxCandidates      int           `mapstructure:"max_candidates"`
	MaxCombinationSize int           `mapstructure:"max_combination_size"`
	EnergyUnit         string        `mapstructure:"energy_unit"` // kJ | J
	Timeout            time.Duration `mapstructure:"timeout"`
}

// PubChemConfig configures the PUG REST client.
type PubChemConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RateLimit     int           `mapstructure:"rate_limit"` // requests per second
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

// TikaConfig configures the document parser client.
type TikaConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ClassifierConfig configures the stoichiometry question gate.
type ClassifierConfig struct {
	Threshold float64  `mapstructure:"threshold"`
	Keywords  []string `mapstructure:"keywords"`
}

// ExtractorConfig configures chemical entity extraction.
type ExtractorConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence"`
	MaxTextLength int     `mapstructure:"max_text_length"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Infrastructure
// ─────────────────────────────────────────────────────────────────────────────

// DatabaseConfig holds PostgreSQL settings for prediction history.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"` // empty uses the embedded set
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis settings for the name resolution cache.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	NullTTL      time.Duration `mapstructure:"null_ttl"`
}

// KafkaConfig holds Kafka settings for async predictions and events.
type KafkaConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	RequestTopic    string        `mapstructure:"request_topic"`
	CompletedTopic  string        `mapstructure:"completed_topic"`
	DeadLetterTopic string        `mapstructure:"dead_letter_topic"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
}

// MinIOConfig holds object storage settings for dataset files.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Namespace            string `mapstructure:"namespace"`
	Path                 string `mapstructure:"path"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
}

// WorkerConfig controls cmd/worker.
type WorkerConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
	HealthPort     int           `mapstructure:"health_port"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Log        logging.LogConfig `mapstructure:"log"`
	Dataset    DatasetConfig     `mapstructure:"dataset"`
	Predictor  PredictorConfig   `mapstructure:"predictor"`
	PubChem    PubChemConfig     `mapstructure:"pubchem"`
	Tika       TikaConfig        `mapstructure:"tika"`
	Classifier ClassifierConfig  `mapstructure:"classifier"`
	Extractor  ExtractorConfig   `mapstructure:"extractor"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	MinIO      MinIOConfig       `mapstructure:"minio"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Worker     WorkerConfig      `mapstructure:"worker"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate checks the fully-populated Config and returns the first problem.
// Disabled infrastructure sections are not checked.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	switch c.Dataset.Source {
	case "file":
		if c.Dataset.Dir == "" {
			return fmt.Errorf("config: dataset.dir is required when dataset.source is file")
		}
	case "minio":
		if !c.MinIO.Enabled {
			return fmt.Errorf("config: dataset.source minio requires minio.enabled")
		}
	default:
		return fmt.Errorf("config: dataset.source %q is invalid; expected file|minio", c.Dataset.Source)
	}

	if c.Predictor.MaxCandidates < 1 {
		return fmt.Errorf("config: predictor.max_candidates must be ≥ 1, got %d", c.Predictor.MaxCandidates)
	}
	if c.Predictor.MaxCombinationSize < 2 {
		return fmt.Errorf("config: predictor.max_combination_size must be ≥ 2, got %d", c.Predictor.MaxCombinationSize)
	}
	switch c.Predictor.EnergyUnit {
	case "kJ", "J":
	default:
		return fmt.Errorf("config: predictor.energy_unit %q is invalid; expected kJ|J", c.Predictor.EnergyUnit)
	}

	if c.Tika.MaxRetries < 0 {
		return fmt.Errorf("config: tika.max_retries must be ≥ 0, got %d", c.Tika.MaxRetries)
	}
	if c.Classifier.Threshold < 0 || c.Classifier.Threshold > 1 {
		return fmt.Errorf("config: classifier.threshold %.2f is out of range [0, 1]", c.Classifier.Threshold)
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required")
		}
	}
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
	}
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required")
		}
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
