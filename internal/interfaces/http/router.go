package http

import (
	"html/template"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/alchemist/internal/interfaces/http/handlers"
	"github.com/turtacn/alchemist/internal/interfaces/http/middleware"
	"github.com/turtacn/alchemist/web"
)

// RouterConfig aggregates the handlers and middleware settings needed to
// build the route tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	// Handlers
	PageHandler       *handlers.PageHandler
	ChemistryHandler  *handlers.ChemistryHandler
	PredictionHandler *handlers.PredictionHandler
	DocumentHandler   *handlers.DocumentHandler
	HealthHandler     *handlers.HealthHandler

	// Middleware
	CORS        middleware.CORSConfig
	RateLimit   *middleware.RateLimitConfig
	Logging     middleware.LoggingConfig
	MaxBodySize int64

	// Templates overrides the embedded templates.
	Templates *template.Template

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// LoadTemplates parses dir/*.html, or the embedded templates when dir is "".
func LoadTemplates(dir string) (*template.Template, error) {
	if dir == "" {
		return template.ParseFS(web.Templates, "templates/*.html")
	}
	return template.ParseGlob(filepath.Join(dir, "*.html"))
}

// NewRouter builds the gin engine: global middleware, probes, metrics, the
// HTML pages and the /api/v1 JSON routes.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Templates == nil {
		tmpl, err := LoadTemplates("")
		if err != nil {
			return nil, err
		}
		cfg.Templates = tmpl
	}

	r := gin.New()
	r.SetHTMLTemplate(cfg.Templates)

	// --- Global middleware ---
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.RateLimit != nil {
		limiter := middleware.NewKeyedLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize, cfg.RateLimit.IdleTTL)
		r.Use(middleware.RateLimit(limiter, *cfg.RateLimit))
	}
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	// --- Probes and metrics ---
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	registerPageRoutes(r, cfg.PageHandler)

	api := r.Group("/api/v1")
	registerChemistryRoutes(api, cfg.ChemistryHandler)
	registerPredictionRoutes(api, cfg.PredictionHandler)
	registerDocumentRoutes(api, cfg.DocumentHandler)

	return r, nil
}

func registerPageRoutes(r *gin.Engine, h *handlers.PageHandler) {
	if h == nil {
		return
	}
	r.GET("/", h.Index)
	r.GET("/transmuter", h.TransmuterForm)
	r.POST("/transmuter", h.Transmute)
	r.POST("/classifier", h.Classify)
}

func registerChemistryRoutes(api *gin.RouterGroup, h *handlers.ChemistryHandler) {
	if h == nil {
		return
	}
	api.POST("/reactions/balance", h.Balance)
	api.GET("/species", h.Species)
	api.GET("/species/state", h.SpeciesState)
	api.POST("/candidates", h.Candidates)
	api.GET("/formulas/resolve", h.Resolve)
}

func registerPredictionRoutes(api *gin.RouterGroup, h *handlers.PredictionHandler) {
	if h == nil {
		return
	}
	api.POST("/reactions/predict", h.Predict)
	api.POST("/transmute", h.Transmute)
	api.POST("/classify", h.Classify)

	p := api.Group("/predictions")
	p.POST("", h.Submit)
	p.GET("", h.List)
	p.GET("/:id", h.Get)
}

func registerDocumentRoutes(api *gin.RouterGroup, h *handlers.DocumentHandler) {
	if h == nil {
		return
	}
	api.POST("/documents/paragraphs", h.Paragraphs)
}
