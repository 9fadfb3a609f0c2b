// Package platform assembles the dataset, infrastructure clients and the
// transmuter service from a Config. cmd/apiserver and cmd/worker share it.
package platform

import (
	"context"
	"time"

	"github.com/turtacn/alchemist/internal/application/transmuter"
	"github.com/turtacn/alchemist/internal/config"
	"github.com/turtacn/alchemist/internal/domain/prediction"
	"github.com/turtacn/alchemist/internal/domain/reaction"
	"github.com/turtacn/alchemist/internal/infrastructure/database/postgres"
	"github.com/turtacn/alchemist/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/alchemist/internal/infrastructure/database/redis"
	"github.com/turtacn/alchemist/internal/infrastructure/dataset"
	"github.com/turtacn/alchemist/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/alchemist/internal/infrastructure/pubchem"
	"github.com/turtacn/alchemist/internal/infrastructure/storage/minio"
	"github.com/turtacn/alchemist/internal/infrastructure/textextract"
	"github.com/turtacn/alchemist/internal/intelligence/chem_extractor"
)

// Check is a named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Platform holds everything a process needs to serve predictions.
// Optional components are nil when disabled in the config.
type Platform struct {
	Config  *config.Config
	Logger  logging.Logger
	Dataset *dataset.Dataset

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Classifier *transmuter.Classifier
	Extractor  *chem_extractor.Extractor
	Resolver   *chem_extractor.NameResolver
	Tika       *textextract.TikaClient
	Service    transmuter.Service

	DB         *postgres.Connection
	Repository prediction.Repository
	Redis      *redis.Client
	Cache      redis.Cache
	Producer   *kafka.Producer
	Store      minio.ObjectStore

	Checks []Check

	closers []func() error
}

// Option customizes New.
type Option func(*options)

type options struct {
	dataset   *dataset.Dataset
	collector prometheus.MetricsCollector
	db        *postgres.Connection
	redis     *redis.Client
	publisher kafka.Publisher
	store     minio.ObjectStore
}

// WithDataset skips dataset loading.
func WithDataset(ds *dataset.Dataset) Option {
	return func(o *options) { o.dataset = ds }
}

// WithCollector replaces the collector built from cfg.Metrics.
func WithCollector(c prometheus.MetricsCollector) Option {
	return func(o *options) { o.collector = c }
}

// WithConnection uses conn for prediction history instead of dialing.
func WithConnection(conn *postgres.Connection) Option {
	return func(o *options) { o.db = conn }
}

// WithRedis uses client for the resolution cache instead of dialing.
func WithRedis(client *redis.Client) Option {
	return func(o *options) { o.redis = client }
}

// WithPublisher uses p for prediction events instead of a Kafka producer.
func WithPublisher(p kafka.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithObjectStore uses s as the dataset bucket.
func WithObjectStore(s minio.ObjectStore) Option {
	return func(o *options) { o.store = s }
}

// New builds a Platform. On error every component opened so far is closed.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...Option) (p *Platform, err error) {
	o := &options{}
	for _, fn := range opts {
		fn(o)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	p = &Platform{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = p.Close()
		}
	}()

	if err = p.initMetrics(o); err != nil {
		return nil, err
	}
	if err = p.initStore(ctx, o); err != nil {
		return nil, err
	}
	if err = p.initDataset(ctx, o); err != nil {
		return nil, err
	}
	if err = p.initRedis(o); err != nil {
		return nil, err
	}
	if err = p.initDatabase(o); err != nil {
		return nil, err
	}
	var publisher kafka.Publisher
	if publisher, err = p.initKafka(o); err != nil {
		return nil, err
	}
	p.initChemistry()

	p.Service = transmuter.NewService(transmuter.Dependencies{
		Extractor:  p.Extractor,
		Resolver:   p.Resolver,
		Predictor:  reaction.NewPredictor(p.Dataset.Thermo, p.Dataset.Filter),
		Repository: p.Repository,
		Publisher:  publisher,
		Metrics:    p.Metrics,
	}, transmuter.Config{
		MaxCandidates: cfg.Predictor.MaxCandidates,
		MaxSize:       cfg.Predictor.MaxCombinationSize,
		Unit:          cfg.Predictor.EnergyUnit,
		Timeout:       cfg.Predictor.Timeout,
		Topics:        Topics(cfg),
	}, logger)

	logger.Info("Platform ready",
		logging.Int("thermo_rows", p.Dataset.Thermo.Len()),
		logging.Bool("history", p.Repository != nil),
		logging.Bool("async", publisher != nil && p.Repository != nil),
		logging.Bool("cache", p.Cache != nil))
	return p, nil
}

// Topics returns the Kafka topic names from cfg.
func Topics(cfg *config.Config) kafka.Topics {
	return kafka.Topics{
		Requested:  cfg.Kafka.RequestTopic,
		Completed:  cfg.Kafka.CompletedTopic,
		DeadLetter: cfg.Kafka.DeadLetterTopic,
	}
}

func (p *Platform) initMetrics(o *options) error {
	switch {
	case o.collector != nil:
		p.Collector = o.collector
	case p.Config.Metrics.Enabled:
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            p.Config.Metrics.Namespace,
			EnableGoMetrics:      p.Config.Metrics.EnableGoMetrics,
			EnableProcessMetrics: p.Config.Metrics.EnableProcessMetrics,
		}, p.Logger)
		if err != nil {
			return err
		}
		p.Collector = c
	default:
		p.Collector = prometheus.NewNoopCollector()
	}
	p.Metrics = prometheus.NewAppMetrics(p.Collector)
	return nil
}

func (p *Platform) initStore(ctx context.Context, o *options) error {
	if o.store != nil {
		p.Store = o.store
		return nil
	}
	mc := p.Config.MinIO
	if !mc.Enabled {
		return nil
	}
	client, err := minio.NewMinIOClient(&minio.MinIOConfig{
		Endpoint:  mc.Endpoint,
		AccessKey: mc.AccessKey,
		SecretKey: mc.SecretKey,
		UseSSL:    mc.UseSSL,
		Region:    mc.Region,
		Bucket:    mc.Bucket,
	}, p.Logger)
	if err != nil {
		return err
	}
	p.closers = append(p.closers, client.Close)
	if err := client.EnsureBucket(ctx); err != nil {
		return err
	}
	p.Store = minio.NewObjectStore(client, p.Logger)
	p.Checks = append(p.Checks, Check{Name: "minio", Fn: func(ctx context.Context) error {
		_, err := client.HealthCheck(ctx)
		return err
	}})
	return nil
}

func (p *Platform) initDataset(ctx context.Context, o *options) error {
	ds := o.dataset
	if ds == nil {
		var src dataset.Source = dataset.NewFileSource(p.Config.Dataset.Dir)
		if p.Config.Dataset.Source == "minio" {
			if p.Store == nil {
				return minio.ErrInvalidRequest.WithDetail("dataset.source is minio but minio is disabled")
			}
			src = dataset.NewMinIOSource(p.Store, "")
		}
		start := time.Now()
		var err error
		if ds, err = dataset.Load(ctx, src, p.Config.Dataset.ThermoKey, p.Config.Dataset.StoichKey); err != nil {
			return err
		}
		p.Logger.Info("Dataset loaded",
			logging.String("source", p.Config.Dataset.Source),
			logging.Int("thermo_rows", ds.Thermo.Len()),
			logging.Int("stoich_entries", ds.Stoich.Len()),
			logging.Duration("elapsed", time.Since(start)))
	}
	p.Dataset = ds
	p.Metrics.DatasetRows.WithLabelValues("thermo").Set(float64(ds.Thermo.Len()))
	p.Metrics.DatasetRows.WithLabelValues("stoich").Set(float64(ds.Stoich.Len()))
	return nil
}

func (p *Platform) initRedis(o *options) error {
	client := o.redis
	if client == nil {
		rc := p.Config.Redis
		if !rc.Enabled {
			return nil
		}
		var err error
		client, err = redis.NewClient(&redis.RedisConfig{
			Addr:         rc.Addr,
			Password:     rc.Password,
			DB:           rc.DB,
			PoolSize:     rc.PoolSize,
			DialTimeout:  rc.DialTimeout,
			ReadTimeout:  rc.ReadTimeout,
			WriteTimeout: rc.WriteTimeout,
		}, p.Logger)
		if err != nil {
			return err
		}
		p.closers = append(p.closers, client.Close)
	}
	p.Redis = client
	p.Cache = redis.NewRedisCache(client, p.Logger,
		redis.WithPrefix(p.Config.Redis.KeyPrefix),
		redis.WithDefaultTTL(p.Config.Redis.DefaultTTL),
		redis.WithNullCacheTTL(p.Config.Redis.NullTTL))
	p.Checks = append(p.Checks, Check{Name: "redis", Fn: client.Ping})
	return nil
}

func (p *Platform) initDatabase(o *options) error {
	conn := o.db
	if conn == nil {
		dc := p.Config.Database
		if !dc.Enabled {
			return nil
		}
		var err error
		conn, err = postgres.NewConnection(postgres.PostgresConfig{
			Host:            dc.Host,
			Port:            dc.Port,
			Database:        dc.DBName,
			Username:        dc.User,
			Password:        dc.Password,
			SSLMode:         dc.SSLMode,
			MaxOpenConns:    dc.MaxOpenConns,
			MaxIdleConns:    dc.MaxIdleConns,
			ConnMaxLifetime: dc.ConnMaxLifetime,
		}, p.Logger)
		if err != nil {
			return err
		}
		p.closers = append(p.closers, conn.Close)
		if dc.AutoMigrate {
			if err := postgres.NewMigrator(conn, dc.MigrationsDir, p.Logger).Up(); err != nil {
				return err
			}
		}
	}
	p.DB = conn
	p.Repository = repositories.NewPostgresPredictionRepo(conn, p.Logger)
	p.Checks = append(p.Checks, Check{Name: "postgres", Fn: conn.HealthCheck})
	return nil
}

func (p *Platform) initKafka(o *options) (kafka.Publisher, error) {
	if o.publisher != nil {
		return o.publisher, nil
	}
	kc := p.Config.Kafka
	if !kc.Enabled {
		return nil, nil
	}
	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:    kc.Brokers,
		Acks:       "all",
		MaxRetries: kc.MaxRetries,
	}, p.Logger)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, producer.Close)
	p.Producer = producer
	return producer, nil
}

func (p *Platform) initChemistry() {
	cfg := p.Config
	m := p.Metrics

	pc := pubchem.NewClient(p.Logger,
		pubchem.WithBaseURL(cfg.PubChem.BaseURL),
		pubchem.WithTimeout(cfg.PubChem.Timeout),
		pubchem.WithRateLimit(cfg.PubChem.RateLimit),
		pubchem.WithObserver(func(status string, d time.Duration) {
			prometheus.RecordPubChemRequest(m, status, d)
		}))
	resolverOpts := []chem_extractor.ResolverOption{
		chem_extractor.WithPubChem(pc),
		chem_extractor.WithResolutionObserver(func(source string, err error) {
			prometheus.RecordResolution(m, source, err)
		}),
	}
	if p.Cache != nil {
		resolverOpts = append(resolverOpts, chem_extractor.WithCache(p.Cache))
	}
	if cfg.PubChem.MaxConcurrent > 0 {
		rc := chem_extractor.DefaultResolverConfig()
		rc.BatchConcurrency = cfg.PubChem.MaxConcurrent
		resolverOpts = append(resolverOpts, chem_extractor.WithResolverConfig(rc))
	}
	p.Resolver = chem_extractor.NewNameResolver(p.Dataset.Thermo, p.Dataset.Filter, p.Logger, resolverOpts...)

	p.Extractor = chem_extractor.NewExtractor(chem_extractor.NewTableDictionary(p.Dataset.Thermo), chem_extractor.ExtractorConfig{
		MinConfidence: cfg.Extractor.MinConfidence,
		MaxTextLength: cfg.Extractor.MaxTextLength,
	}, p.Logger)

	p.Classifier = transmuter.NewClassifier(cfg.Classifier.Keywords, cfg.Classifier.Threshold)
	p.Classifier.OnClassify(func(c transmuter.Classification) {
		m.ClassificationsTotal.WithLabelValues(c.Label).Inc()
	})

	if cfg.Tika.URL != "" {
		p.Tika = textextract.NewTikaClient(textextract.TikaConfig{
			URL:        cfg.Tika.URL,
			MaxRetries: cfg.Tika.MaxRetries,
			RetryDelay: cfg.Tika.RetryDelay,
			Timeout:    cfg.Tika.Timeout,
		}, p.Logger)
		p.Tika.OnRetry(func() { m.ParserAttemptsTotal.WithLabelValues("retry").Inc() })
	}
}

// Reload applies the runtime-safe subset of cfg: log level and the
// classifier profile.
func (p *Platform) Reload(cfg *config.Config) {
	if ls, ok := p.Logger.(logging.LevelSetter); ok {
		ls.SetLevel(cfg.Log.Level)
	}
	p.Classifier.SetKeywords(cfg.Classifier.Keywords)
	p.Classifier.SetThreshold(cfg.Classifier.Threshold)
	p.Logger.Info("Configuration reloaded",
		logging.String("log_level", cfg.Log.Level),
		logging.Float64("classifier_threshold", p.Classifier.Threshold()))
}

// Close releases every opened client in reverse order and returns the
// first error.
func (p *Platform) Close() error {
	var first error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	p.closers = nil
	return first
}
