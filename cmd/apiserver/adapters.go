package main

import (
	"time"

	"github.com/gin-gonic/gin"

	httpserver "github.com/turtacn/alchemist/internal/interfaces/http"
	"github.com/turtacn/alchemist/internal/interfaces/http/handlers"
	"github.com/turtacn/alchemist/internal/interfaces/http/middleware"
	"github.com/turtacn/alchemist/internal/platform"
)

// healthCheckers adapts platform probes for the readiness handler.
func healthCheckers(p *platform.Platform) []handlers.HealthChecker {
	out := make([]handlers.HealthChecker, len(p.Checks))
	for i, c := range p.Checks {
		out[i] = handlers.CheckFunc{ComponentName: c.Name, Fn: c.Fn}
	}
	return out
}

func buildRouter(p *platform.Platform) (*gin.Engine, error) {
	cfg := p.Config

	tmpl, err := httpserver.LoadTemplates(cfg.Server.TemplatesDir)
	if err != nil {
		return nil, err
	}

	var tika handlers.TextExtractor
	if p.Tika != nil {
		tika = p.Tika
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.Server.CORSOrigins

	rc := middleware.DefaultRateLimitConfig()
	rc.RequestsPerSecond = cfg.Server.RateLimitRPS
	rc.BurstSize = cfg.Server.RateLimitBurst
	rc.SkipPaths = []string{"/healthz", "/readyz", cfg.Metrics.Path}

	logCfg := middleware.DefaultLoggingConfig()
	logCfg.SkipPaths = rc.SkipPaths
	logCfg.SlowThreshold = 2 * time.Second

	rcfg := httpserver.RouterConfig{
		PageHandler:       handlers.NewPageHandler(p.Service, p.Classifier),
		ChemistryHandler:  handlers.NewChemistryHandler(p.Dataset.Thermo, p.Dataset.Filter, p.Resolver),
		PredictionHandler: handlers.NewPredictionHandler(p.Service, p.Classifier),
		DocumentHandler:   handlers.NewDocumentHandler(tika, p.Extractor, cfg.Server.MaxBodySize),
		HealthHandler:     handlers.NewHealthHandler(version, healthCheckers(p)...),
		CORS:              cors,
		RateLimit:         &rc,
		Logging:           logCfg,
		MaxBodySize:       cfg.Server.MaxBodySize,
		Templates:         tmpl,
		Logger:            p.Logger,
	}
	if cfg.Metrics.Enabled {
		rcfg.Metrics = p.Metrics
		rcfg.MetricsCollector = p.Collector
		rcfg.MetricsPath = cfg.Metrics.Path
	}
	return httpserver.NewRouter(rcfg)
}
