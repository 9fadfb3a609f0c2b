package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 8080
	DefaultServerMode            = "debug"
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 60 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second
	DefaultServerMaxBodySize     = 32 << 20
	DefaultRateLimitRPS          = 20
	DefaultRateLimitBurst        = 40

	DefaultDatasetSource = "file"
	DefaultDatasetDir    = "data"
	DefaultThermoKey     = "thermo.csv"
	DefaultStoichKey     = "stoich.csv"

	DefaultMaxCandidates      = 12
	DefaultMaxCombinationSize = 6
	DefaultEnergyUnit         = "kJ"
	DefaultPredictorTimeout   = 30 * time.Second

	DefaultPubChemBaseURL       = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	DefaultPubChemTimeout       = 10 * time.Second
	DefaultPubChemRateLimit     = 5
	DefaultPubChemMaxConcurrent = 4

	DefaultTikaURL        = "http://localhost:9998"
	DefaultTikaMaxRetries = 2
	DefaultTikaRetryDelay = 5 * time.Second
	DefaultTikaTimeout    = 60 * time.Second

	DefaultClassifierThreshold = 0.2

	DefaultExtractorMinConfidence = 0.5
	DefaultExtractorMaxTextLength = 200000

	DefaultDBHost            = "localhost"
	DefaultDBPort            = 5432
	DefaultDBName            = "alchemist"
	DefaultDBSSLMode         = "disable"
	DefaultDBMaxConns        = 25
	DefaultDBMaxIdleConns    = 10
	DefaultDBConnMaxLifetime = 30 * time.Minute

	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPoolSize     = 10
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisKeyPrefix    = "alchemist:"
	DefaultRedisTTL          = 24 * time.Hour
	DefaultRedisNullTTL      = 10 * time.Minute

	DefaultKafkaBroker          = "localhost:9092"
	DefaultKafkaGroupID         = "alchemist-worker"
	DefaultKafkaRequestTopic    = "alchemist.prediction.requested"
	DefaultKafkaCompletedTopic  = "alchemist.prediction.completed"
	DefaultKafkaDeadLetterTopic = "alchemist.dlq"
	DefaultKafkaMaxRetries      = 3
	DefaultKafkaRetryBackoff    = time.Second

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "alchemist-datasets"
	DefaultMinIORegion   = "us-east-1"

	DefaultMetricsNamespace = "alchemist"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency    = 4
	DefaultWorkerHandlerTimeout = 2 * time.Minute
	DefaultWorkerHealthPort     = 8081
)

// DefaultClassifierKeywords is the keyword profile used when none is configured.
var DefaultClassifierKeywords = []string{
	"react", "reacts", "reaction", "reactant", "reactants", "product", "products",
	"balance", "balanced", "equation", "stoichiometry", "stoichiometric",
	"mole", "moles", "mol", "yield", "produce", "produces", "form", "forms",
	"combust", "combustion", "burn", "oxidize", "reduce", "decompose",
	"gibbs", "energy", "spontaneous",
}

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills every zero-value field in cfg with its default.
// Explicitly set values are left unchanged. Booleans are never touched.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultServerMaxBodySize
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = DefaultRateLimitRPS
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = DefaultRateLimitBurst
	}

	// ── Dataset / predictor ───────────────────────────────────────────────────
	if cfg.Dataset.Source == "" {
		cfg.Dataset.Source = DefaultDatasetSource
	}
	if cfg.Dataset.Dir == "" {
		cfg.Dataset.Dir = DefaultDatasetDir
	}
	if cfg.Dataset.ThermoKey == "" {
		cfg.Dataset.ThermoKey = DefaultThermoKey
	}
	if cfg.Dataset.StoichKey == "" {
		cfg.Dataset.StoichKey = DefaultStoichKey
	}
	if cfg.Predictor.MaxCandidates == 0 {
		cfg.Predictor.MaxCandidates = DefaultMaxCandidates
	}
	if cfg.Predictor.MaxCombinationSize == 0 {
		cfg.Predictor.MaxCombinationSize = DefaultMaxCombinationSize
	}
	if cfg.Predictor.EnergyUnit == "" {
		cfg.Predictor.EnergyUnit = DefaultEnergyUnit
	}
	if cfg.Predictor.Timeout == 0 {
		cfg.Predictor.Timeout = DefaultPredictorTimeout
	}

	// ── External services ─────────────────────────────────────────────────────
	if cfg.PubChem.BaseURL == "" {
		cfg.PubChem.BaseURL = DefaultPubChemBaseURL
	}
	if cfg.PubChem.Timeout == 0 {
		cfg.PubChem.Timeout = DefaultPubChemTimeout
	}
	if cfg.PubChem.RateLimit == 0 {
		cfg.PubChem.RateLimit = DefaultPubChemRateLimit
	}
	if cfg.PubChem.MaxConcurrent == 0 {
		cfg.PubChem.MaxConcurrent = DefaultPubChemMaxConcurrent
	}
	if cfg.Tika.URL == "" {
		cfg.Tika.URL = DefaultTikaURL
	}
	if cfg.Tika.MaxRetries == 0 {
		cfg.Tika.MaxRetries = DefaultTikaMaxRetries
	}
	if cfg.Tika.RetryDelay == 0 {
		cfg.Tika.RetryDelay = DefaultTikaRetryDelay
	}
	if cfg.Tika.Timeout == 0 {
		cfg.Tika.Timeout = DefaultTikaTimeout
	}

	// ── Text analysis ─────────────────────────────────────────────────────────
	if cfg.Classifier.Threshold == 0 {
		cfg.Classifier.Threshold = DefaultClassifierThreshold
	}
	if len(cfg.Classifier.Keywords) == 0 {
		cfg.Classifier.Keywords = append([]string(nil), DefaultClassifierKeywords...)
	}
	if cfg.Extractor.MinConfidence == 0 {
		cfg.Extractor.MinConfidence = DefaultExtractorMinConfidence
	}
	if cfg.Extractor.MaxTextLength == 0 {
		cfg.Extractor.MaxTextLength = DefaultExtractorMaxTextLength
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultDBMaxConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDBMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = DefaultDBConnMaxLifetime
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = DefaultRedisReadTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = DefaultRedisWriteTimeout
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.NullTTL == 0 {
		cfg.Redis.NullTTL = DefaultRedisNullTTL
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.RequestTopic == "" {
		cfg.Kafka.RequestTopic = DefaultKafkaRequestTopic
	}
	if cfg.Kafka.CompletedTopic == "" {
		cfg.Kafka.CompletedTopic = DefaultKafkaCompletedTopic
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = DefaultKafkaDeadLetterTopic
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = DefaultKafkaMaxRetries
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = DefaultKafkaRetryBackoff
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.Region == "" {
		cfg.MinIO.Region = DefaultMinIORegion
	}

	// ── Metrics / log / worker ────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.HandlerTimeout == 0 {
		cfg.Worker.HandlerTimeout = DefaultWorkerHandlerTimeout
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}
}
