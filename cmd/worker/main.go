// Command worker consumes queued prediction requests from Kafka and runs them
// against the prediction history.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/alchemist/internal/config"
	"github.com/turtacn/alchemist/internal/infrastructure/database/redis"
	"github.com/turtacn/alchemist/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/alchemist/internal/interfaces/http"
	"github.com/turtacn/alchemist/internal/interfaces/http/handlers"
	"github.com/turtacn/alchemist/internal/platform"
)

const defaultConfigPath = "configs/config.yaml"

var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	workers := flag.Int("workers", 0, "concurrent consumers (overrides worker.concurrency)")
	ensureTopics := flag.Bool("ensure-topics", false, "create the prediction topics before consuming")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Worker.Concurrency = *workers
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	gin.SetMode(cfg.Server.Mode)

	if !cfg.Kafka.Enabled || !cfg.Database.Enabled {
		logger.Fatal("The worker needs kafka.enabled and database.enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := platform.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize platform", logging.Err(err))
	}
	defer p.Close()

	if _, statErr := os.Stat(*configPath); statErr == nil {
		config.Watch(*configPath, p.Reload)
	}

	topics := platform.Topics(cfg)
	if *ensureTopics {
		if err := kafka.EnsureTopics(ctx, cfg.Kafka.Brokers, topics.Configs(), logger); err != nil {
			logger.Fatal("Failed to create topics", logging.Err(err))
		}
	}

	var locks redis.LockFactory
	if p.Redis != nil {
		locks = redis.NewLockFactory(p.Redis, cfg.Redis.KeyPrefix, logger)
	}
	handler := newRequestHandler(p.Service, locks, cfg.Worker.HandlerTimeout, p.Metrics, logger.Named("worker"))

	consumers := make([]*kafka.Consumer, 0, cfg.Worker.Concurrency)
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		c, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topics:  []string{topics.Requested},
			RetryConfig: kafka.RetryConfig{
				MaxRetries:      cfg.Kafka.MaxRetries,
				RetryBackoff:    cfg.Kafka.RetryBackoff,
				DeadLetterTopic: topics.DeadLetter,
			},
		}, p.Producer, logger.With(logging.Int("consumer", i)))
		if err != nil {
			logger.Fatal("Failed to create Kafka consumer", logging.Err(err))
		}
		c.Subscribe(topics.Requested, handler.Handle)
		if err := c.Start(ctx); err != nil {
			logger.Fatal("Failed to start Kafka consumer", logging.Err(err))
		}
		consumers = append(consumers, c)
	}

	healthSrv, err := newHealthServer(p, cfg)
	if err != nil {
		logger.Fatal("Failed to build health server", logging.Err(err))
	}
	go func() {
		if err := healthSrv.Start(); err != nil {
			logger.Error("Health server error", logging.Err(err))
		}
	}()

	logger.Info("Worker started",
		logging.String("version", version),
		logging.Int("consumers", len(consumers)),
		logging.String("topic", topics.Requested))

	<-ctx.Done()
	logger.Info("Received shutdown signal, draining consumers")

	for _, c := range consumers {
		if err := c.Close(); err != nil {
			logger.Warn("Consumer close error", logging.Err(err))
		}
	}
	if err := healthSrv.Stop(context.Background()); err != nil {
		logger.Error("Health server shutdown error", logging.Err(err))
	}
	logger.Info("Worker stopped")
}

// newHealthServer exposes the probes and metrics on the worker health port.
func newHealthServer(p *platform.Platform, cfg *config.Config) (*httpserver.Server, error) {
	checkers := make([]handlers.HealthChecker, len(p.Checks))
	for i, c := range p.Checks {
		checkers[i] = handlers.CheckFunc{ComponentName: c.Name, Fn: c.Fn}
	}
	rcfg := httpserver.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(version, checkers...),
		Logger:        p.Logger,
	}
	if cfg.Metrics.Enabled {
		rcfg.MetricsCollector = p.Collector
		rcfg.MetricsPath = cfg.Metrics.Path
	}
	router, err := httpserver.NewRouter(rcfg)
	if err != nil {
		return nil, err
	}
	return httpserver.NewServer(httpserver.ServerConfig{
		Addr: fmt.Sprintf(":%d", cfg.Worker.HealthPort),
	}, router, p.Logger), nil
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
