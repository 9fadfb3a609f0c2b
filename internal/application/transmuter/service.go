// Package transmuter is the application service behind every alchemist
// surface. It turns free text or formula lists into predicted reactions and
// keeps the prediction history.
package transmuter

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/alchemist/internal/domain/prediction"
	"github.com/turtacn/alchemist/internal/domain/reaction"
	"github.com/turtacn/alchemist/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/alchemist/internal/intelligence/chem_extractor"
	"github.com/turtacn/alchemist/pkg/errors"
)

// Prediction sources, used as the metrics label.
const (
	SourceText   = "text"
	SourceAPI    = "api"
	SourceWorker = "worker"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

var (
	// ErrNoSpecies is returned when text names no chemical species.
	ErrNoSpecies = errors.New(errors.CodeNoEntities, "no chemical species found in text")
	// ErrAsyncUnavailable is returned by Submit and Process without a
	// repository or producer.
	ErrAsyncUnavailable = errors.Unavailable("asynchronous predictions are not configured")
	// ErrHistoryUnavailable is returned by Get and List without a repository.
	ErrHistoryUnavailable = errors.Unavailable("prediction history is not configured")
)

// Service is the transmuter application API.
type Service interface {
	// Transmute extracts species from text, resolves them and predicts.
	Transmute(ctx context.Context, text string) (*TransmuteResult, error)
	Predict(ctx context.Context, req *PredictRequest) (*PredictResult, error)
	// Submit stores a pending record and queues it for a worker.
	Submit(ctx context.Context, req *PredictRequest) (*prediction.Record, error)
	// Process runs a queued prediction. Prediction failures are recorded on
	// the record; only infrastructure failures are returned.
	Process(ctx context.Context, ev *prediction.RequestedEvent) (*prediction.Record, error)
	Get(ctx context.Context, id string) (*prediction.Record, error)
	List(ctx context.Context, limit, offset int) (*ListResult, error)
}

// EntityExtractor finds chemical species in text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]*chem_extractor.RawChemicalEntity, error)
}

// NameResolver maps names to table formulas.
type NameResolver interface {
	ResolveBatch(ctx context.Context, names []string) ([]*chem_extractor.Resolution, error)
}

// ReactionPredictor is satisfied by *reaction.Predictor.
type ReactionPredictor interface {
	Predict(ctx context.Context, reactants []string, opts reaction.Options) (*reaction.Prediction, error)
}

// PredictRequest asks for a prediction from formulas.
type PredictRequest struct {
	Reactants     []string `json:"reactants" binding:"required"`
	MaxCandidates int      `json:"max_candidates,omitempty"`
	Unit          string   `json:"unit,omitempty"`
}

// PredictResult is a finished synchronous prediction.
type PredictResult struct {
	ID         string               `json:"id"`
	Reactants  []string             `json:"reactants"`
	Prediction *reaction.Prediction `json:"prediction"`
	Equation   string               `json:"equation"`
}

// TransmuteResult is the full text pipeline output.
type TransmuteResult struct {
	PredictResult
	Entities    []*chem_extractor.RawChemicalEntity `json:"entities"`
	Resolutions []*chem_extractor.Resolution        `json:"resolutions"`
}

// ListResult is one page of history.
type ListResult struct {
	Records []*prediction.Record `json:"records"`
	Total   int64                `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

// Config bounds predictions run by the service.
type Config struct {
	MaxCandidates int
	MaxSize       int
	Unit          string
	// Timeout caps a single prediction; zero means no cap.
	Timeout time.Duration
	Topics  kafka.Topics
}

// Dependencies wires the service. Repository, Publisher and Metrics are
// optional.
type Dependencies struct {
	Extractor  EntityExtractor
	Resolver   NameResolver
	Predictor  ReactionPredictor
	Repository prediction.Repository
	Publisher  kafka.Publisher
	Metrics    *prometheus.AppMetrics
}

type serviceImpl struct {
	extractor EntityExtractor
	resolver  NameResolver
	predictor ReactionPredictor
	repo      prediction.Repository
	publisher kafka.Publisher
	metrics   *prometheus.AppMetrics
	cfg       Config
	logger    logging.Logger
}

// NewService creates the transmuter service.
func NewService(deps Dependencies, cfg Config, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = prometheus.NewNoopAppMetrics()
	}
	return &serviceImpl{
		extractor: deps.Extractor,
		resolver:  deps.Resolver,
		predictor: deps.Predictor,
		repo:      deps.Repository,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		cfg:       cfg,
		logger:    logger.Named("transmuter"),
	}
}

func (s *serviceImpl) Transmute(ctx context.Context, text string) (*TransmuteResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.InvalidParam("text is required")
	}

	entities, err := s.extractor.Extract(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, ErrNoSpecies
	}
	for _, e := range entities {
		s.metrics.EntitiesExtracted.WithLabelValues(string(e.EntityType)).Inc()
	}

	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Text
	}
	resolutions, err := s.resolver.ResolveBatch(ctx, names)
	if err != nil {
		return nil, err
	}
	reactants := chem_extractor.Formulas(resolutions)

	opts, err := s.options(0, "")
	if err != nil {
		return nil, err
	}
	rec := prediction.NewRecord(text, reactants)
	pred, err := s.runSync(ctx, rec, opts, SourceText)
	if err != nil {
		return nil, err
	}
	return &TransmuteResult{
		PredictResult: PredictResult{
			ID:         rec.ID.String(),
			Reactants:  reactants,
			Prediction: pred,
			Equation:   pred.Reaction.String(),
		},
		Entities:    entities,
		Resolutions: resolutions,
	}, nil
}

func (s *serviceImpl) Predict(ctx context.Context, req *PredictRequest) (*PredictResult, error) {
	reactants, err := validateRequest(req)
	if err != nil {
		return nil, err
	}
	opts, err := s.options(req.MaxCandidates, req.Unit)
	if err != nil {
		return nil, err
	}
	rec := prediction.NewRecord("", reactants)
	pred, err := s.runSync(ctx, rec, opts, SourceAPI)
	if err != nil {
		return nil, err
	}
	return &PredictResult{
		ID:         rec.ID.String(),
		Reactants:  reactants,
		Prediction: pred,
		Equation:   pred.Reaction.String(),
	}, nil
}

func (s *serviceImpl) Submit(ctx context.Context, req *PredictRequest) (*prediction.Record, error) {
	if s.repo == nil || s.publisher == nil {
		return nil, ErrAsyncUnavailable
	}
	reactants, err := validateRequest(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.options(req.MaxCandidates, req.Unit); err != nil {
		return nil, err
	}

	rec := prediction.NewRecord("", reactants)
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	ev := prediction.NewRequestedEvent(rec, req.MaxCandidates, req.Unit)
	err = kafka.PublishEvent(ctx, s.publisher, s.cfg.Topics.Requested, prediction.EventRequested, rec.ID.String(), ev)
	prometheus.RecordPublish(s.metrics, s.cfg.Topics.Requested, err)
	if err != nil {
		s.logger.Error("Failed to queue prediction",
			logging.String("prediction_id", rec.ID.String()), logging.Err(err))
		if failErr := rec.Fail(err); failErr == nil {
			if updErr := s.repo.Update(ctx, rec); updErr != nil {
				s.logger.Warn("Failed to mark unqueued prediction failed",
					logging.String("prediction_id", rec.ID.String()), logging.Err(updErr))
			}
		}
		return nil, err
	}

	s.logger.Info("Prediction queued",
		logging.String("prediction_id", rec.ID.String()),
		logging.Strings("reactants", reactants))
	return rec, nil
}

func (s *serviceImpl) Process(ctx context.Context, ev *prediction.RequestedEvent) (*prediction.Record, error) {
	if s.repo == nil {
		return nil, ErrAsyncUnavailable
	}
	if ev == nil || ev.PredictionID == uuid.Nil {
		return nil, errors.InvalidParam("prediction id is required")
	}

	rec, err := s.repo.GetByID(ctx, ev.PredictionID)
	if err != nil {
		return nil, err
	}
	if rec.Status.IsTerminal() {
		s.logger.Debug("Skipping finished prediction",
			logging.String("prediction_id", rec.ID.String()),
			logging.String("status", string(rec.Status)))
		return rec, nil
	}
	if rec.Status == prediction.StatusPending {
		if err := rec.Start(); err != nil {
			return nil, err
		}
		if err := s.repo.Update(ctx, rec); err != nil {
			return nil, err
		}
	}

	opts, err := s.options(ev.MaxCandidates, ev.Unit)
	if err != nil {
		return nil, err
	}
	pred, runErr := s.predict(ctx, rec.Reactants, opts, SourceWorker)
	if ctx.Err() != nil {
		// Shutdown or handler timeout: leave the record running for redelivery.
		return nil, ctx.Err()
	}
	settle(rec, pred, runErr)
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.publishCompleted(ctx, rec)
	return rec, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*prediction.Record, error) {
	if s.repo == nil {
		return nil, ErrHistoryUnavailable
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.InvalidParam("invalid prediction id").WithDetail(id)
	}
	return s.repo.GetByID(ctx, uid)
}

func (s *serviceImpl) List(ctx context.Context, limit, offset int) (*ListResult, error) {
	if s.repo == nil {
		return nil, ErrHistoryUnavailable
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	records, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ListResult{Records: records, Total: total, Limit: limit, Offset: offset}, nil
}

// runSync predicts for a fresh record and stores it. History and events are
// best effort on this path.
func (s *serviceImpl) runSync(ctx context.Context, rec *prediction.Record, opts reaction.Options, source string) (*reaction.Prediction, error) {
	_ = rec.Start()
	pred, err := s.predict(ctx, rec.Reactants, opts, source)
	settle(rec, pred, err)

	if s.repo != nil {
		if createErr := s.repo.Create(ctx, rec); createErr != nil {
			s.logger.Warn("Failed to record prediction",
				logging.String("prediction_id", rec.ID.String()), logging.Err(createErr))
		}
	}
	s.publishCompleted(ctx, rec)
	return pred, err
}

func (s *serviceImpl) predict(ctx context.Context, reactants []string, opts reaction.Options, source string) (*reaction.Prediction, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	pred, err := s.predictor.Predict(ctx, reactants, opts)
	elapsed := time.Since(start)

	candidates := 0
	if pred != nil {
		candidates = len(pred.Candidates)
		for reason, n := range pred.Attempts {
			s.metrics.BalanceAttemptsTotal.WithLabelValues(reason).Add(float64(n))
		}
	}
	prometheus.RecordPrediction(s.metrics, source, candidates, elapsed, err)

	if err != nil {
		s.logger.Info("Prediction failed",
			logging.Strings("reactants", reactants),
			logging.String("source", source),
			logging.Err(err))
		return nil, err
	}
	s.logger.Debug("Prediction finished",
		logging.Strings("reactants", reactants),
		logging.String("reaction", pred.Reaction.String()),
		logging.Float64("delta_g", pred.DeltaG),
		logging.Int("combinations", pred.Combinations),
		logging.Duration("elapsed", elapsed))
	return pred, nil
}

func (s *serviceImpl) publishCompleted(ctx context.Context, rec *prediction.Record) {
	if s.publisher == nil || s.cfg.Topics.Completed == "" {
		return
	}
	err := kafka.PublishEvent(ctx, s.publisher, s.cfg.Topics.Completed, prediction.EventCompleted,
		rec.ID.String(), prediction.NewCompletedEvent(rec))
	prometheus.RecordPublish(s.metrics, s.cfg.Topics.Completed, err)
	if err != nil {
		s.logger.Warn("Failed to publish prediction result",
			logging.String("prediction_id", rec.ID.String()), logging.Err(err))
	}
}

func (s *serviceImpl) options(maxCandidates int, unit string) (reaction.Options, error) {
	if unit == "" {
		unit = s.cfg.Unit
	}
	u, err := reaction.ParseUnit(unit)
	if err != nil {
		return reaction.Options{}, err
	}
	if maxCandidates < 0 {
		return reaction.Options{}, errors.InvalidParam("max_candidates must not be negative")
	}
	if maxCandidates == 0 {
		maxCandidates = s.cfg.MaxCandidates
	}
	return reaction.Options{MaxCandidates: maxCandidates, MaxSize: s.cfg.MaxSize, Unit: u}, nil
}

// settle moves rec to its terminal state.
func settle(rec *prediction.Record, pred *reaction.Prediction, err error) {
	if err != nil {
		_ = rec.Fail(err)
		return
	}
	_ = rec.Complete(prediction.Outcome{
		Reaction:     pred.Reaction.String(),
		DeltaG:       pred.DeltaG,
		Unit:         string(pred.Unit),
		Candidates:   pred.Candidates,
		Combinations: pred.Combinations,
		Attempts:     pred.Attempts,
	})
}

func validateRequest(req *PredictRequest) ([]string, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	reactants := make([]string, 0, len(req.Reactants))
	for _, r := range req.Reactants {
		if r = strings.TrimSpace(r); r != "" {
			reactants = append(reactants, r)
		}
	}
	if len(reactants) == 0 {
		return nil, errors.InvalidParam("at least one reactant is required")
	}
	return reactants, nil
}
