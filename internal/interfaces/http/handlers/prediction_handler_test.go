package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/alchemist/internal/application/transmuter"
	"github.com/turtacn/alchemist/internal/domain/prediction"
	"github.com/turtacn/alchemist/pkg/errors"
)

// asyncService serves the history routes from memory and delegates the rest.
type asyncService struct {
	transmuter.Service
	records    map[string]*prediction.Record
	limit      int
	offset     int
	publishErr error
}

func (s *asyncService) Submit(_ context.Context, req *transmuter.PredictRequest) (*prediction.Record, error) {
	if s.publishErr != nil {
		return nil, s.publishErr
	}
	rec := prediction.NewRecord("", req.Reactants)
	s.records[rec.ID.String()] = rec
	return rec, nil
}

func (s *asyncService) Get(_ context.Context, id string) (*prediction.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.InvalidParam("invalid prediction id")
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, prediction.ErrRecordNotFound.WithDetail(id)
	}
	return rec, nil
}

func (s *asyncService) List(_ context.Context, limit, offset int) (*transmuter.ListResult, error) {
	s.limit, s.offset = limit, offset
	out := &transmuter.ListResult{Limit: limit, Offset: offset, Total: int64(len(s.records))}
	for _, r := range s.records {
		out.Records = append(out.Records, r)
	}
	return out, nil
}

func predictionEngine(t *testing.T, svc transmuter.Service) http.Handler {
	t.Helper()
	fx := newFixture(t)
	if svc == nil {
		svc = fx.svc
	}
	h := NewPredictionHandler(svc, fx.classifier)
	r := newEngine(t)
	r.POST("/predict", h.Predict)
	r.POST("/transmute", h.Transmute)
	r.POST("/classify", h.Classify)
	r.POST("/predictions", h.Submit)
	r.GET("/predictions", h.List)
	r.GET("/predictions/:id", h.Get)
	return r
}

func TestPredictionHandler_Predict(t *testing.T) {
	r := predictionEngine(t, nil)

	w := doJSON(r, http.MethodPost, "/predict", transmuter.PredictRequest{Reactants: []string{"Al", "O2"}, MaxCandidates: 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res transmuter.PredictResult
	decode(t, w, &res)
	assert.Equal(t, "4 Al(s) + 3 O2(g) → 2 Al2O3(s)", res.Equation)
	assert.Equal(t, []string{"Al2O3(s)", "Al2O(g)"}, res.Prediction.Candidates)
	assert.NotEmpty(t, res.ID)

	w = doJSON(r, http.MethodPost, "/predict", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/predict", transmuter.PredictRequest{Reactants: []string{"Al"}, Unit: "kcal"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.CodeInvalidParam.String(), decodeError(t, w).Code)
}

func TestPredictionHandler_Transmute(t *testing.T) {
	r := predictionEngine(t, nil)

	w := doJSON(r, http.MethodPost, "/transmute", TextRequest{Text: "What happens when aluminium reacts with oxygen?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res transmuter.TransmuteResult
	decode(t, w, &res)
	assert.Equal(t, []string{"Al", "O2"}, res.Reactants)
	assert.Equal(t, "4 Al(s) + 3 O2(g) → 2 Al2O3(s)", res.Equation)
	assert.Len(t, res.Entities, 2)

	w = doJSON(r, http.MethodPost, "/transmute", TextRequest{Text: "What is the weather like today?"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, errors.CodeNoEntities.String(), decodeError(t, w).Code)
}

func TestPredictionHandler_Classify(t *testing.T) {
	r := predictionEngine(t, nil)

	w := doJSON(r, http.MethodPost, "/classify", TextRequest{Text: "Balance Al + O2"})
	require.Equal(t, http.StatusOK, w.Code)
	var cls transmuter.Classification
	decode(t, w, &cls)
	assert.True(t, cls.IsStoichiometry)
	assert.Equal(t, transmuter.LabelStoichiometry, cls.Label)
	assert.Equal(t, []string{"balance"}, cls.Anchors)

	w = doJSON(r, http.MethodPost, "/classify", TextRequest{Text: "What is the capital of France?"})
	decode(t, w, &cls)
	assert.False(t, cls.IsStoichiometry)
	assert.Equal(t, transmuter.LabelOther, cls.Label)
}

func TestPredictionHandler_SubmitAndGet(t *testing.T) {
	svc := &asyncService{records: map[string]*prediction.Record{}}
	r := predictionEngine(t, svc)

	w := doJSON(r, http.MethodPost, "/predictions", transmuter.PredictRequest{Reactants: []string{"Al", "O2"}})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var rec prediction.Record
	decode(t, w, &rec)
	assert.Equal(t, prediction.StatusPending, rec.Status)
	assert.Equal(t, "/api/v1/predictions/"+rec.ID.String(), w.Header().Get("Location"))

	w = doJSON(r, http.MethodGet, "/predictions/"+rec.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got prediction.Record
	decode(t, w, &got)
	assert.Equal(t, rec.ID, got.ID)

	w = doJSON(r, http.MethodGet, "/predictions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/predictions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictionHandler_SubmitErrors(t *testing.T) {
	// Without a repository and publisher the real service refuses.
	r := predictionEngine(t, nil)
	w := doJSON(r, http.MethodPost, "/predictions", transmuter.PredictRequest{Reactants: []string{"Al"}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, errors.CodeServiceUnavailable.String(), decodeError(t, w).Code)

	// Infrastructure failures are masked.
	svc := &asyncService{records: map[string]*prediction.Record{}, publishErr: errors.New(errors.CodeMessageQueueError, "broker down")}
	r = predictionEngine(t, svc)
	w = doJSON(r, http.MethodPost, "/predictions", transmuter.PredictRequest{Reactants: []string{"Al"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, errors.CodeInternal.String(), resp.Code)
	assert.NotContains(t, resp.Message, "broker")
}

func TestPredictionHandler_List(t *testing.T) {
	svc := &asyncService{records: map[string]*prediction.Record{}}
	r := predictionEngine(t, svc)

	w := doJSON(r, http.MethodGet, "/predictions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, svc.limit)
	assert.Equal(t, 0, svc.offset)

	w = doJSON(r, http.MethodGet, "/predictions?limit=5&offset=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res transmuter.ListResult
	decode(t, w, &res)
	assert.Equal(t, 5, res.Limit)
	assert.Equal(t, 10, res.Offset)

	doJSON(r, http.MethodGet, "/predictions?limit=-1&offset=x", nil)
	assert.Equal(t, 20, svc.limit)
	assert.Equal(t, 0, svc.offset)
}
