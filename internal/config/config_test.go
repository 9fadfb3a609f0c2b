package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, newValidConfig().Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"bad dataset source", func(c *Config) { c.Dataset.Source = "s3" }, "dataset.source"},
		{"minio source without minio", func(c *Config) { c.Dataset.Source = "minio" }, "minio.enabled"},
		{"empty dataset dir", func(c *Config) { c.Dataset.Dir = "" }, "dataset.dir"},
		{"candidates", func(c *Config) { c.Predictor.MaxCandidates = -1 }, "predictor.max_candidates"},
		{"combination size", func(c *Config) { c.Predictor.MaxCombinationSize = 1 }, "predictor.max_combination_size"},
		{"energy unit", func(c *Config) { c.Predictor.EnergyUnit = "kcal" }, "predictor.energy_unit"},
		{"tika retries", func(c *Config) { c.Tika.MaxRetries = -1 }, "tika.max_retries"},
		{"threshold", func(c *Config) { c.Classifier.Threshold = 1.5 }, "classifier.threshold"},
		{"database host", func(c *Config) { c.Database.Enabled = true; c.Database.Host = "" }, "database.host"},
		{"database user", func(c *Config) { c.Database.Enabled = true }, "database.user"},
		{"redis addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis.addr"},
		{"kafka brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"minio endpoint", func(c *Config) { c.MinIO.Enabled = true; c.MinIO.Endpoint = "" }, "minio.endpoint"},
		{"worker concurrency", func(c *Config) { c.Worker.Concurrency = 0 }, "worker.concurrency"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newValidConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_DisabledSectionsIgnored(t *testing.T) {
	cfg := newValidConfig()
	cfg.Database.User = ""
	cfg.Redis.Addr = ""
	cfg.Kafka.Brokers = nil
	cfg.MinIO.Bucket = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidate_EnabledDatabase(t *testing.T) {
	cfg := newValidConfig()
	cfg.Database.Enabled = true
	cfg.Database.User = "alchemist"
	assert.NoError(t, cfg.Validate())
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "localhost", Port: 8080}
	assert.Equal(t, "localhost:8080", s.Addr())
}
