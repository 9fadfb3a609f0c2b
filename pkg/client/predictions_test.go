package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordID = "6f1c2a0e-3b7d-4b8e-9a52-0c1d2e3f4a5b"

func TestPredictions_Predict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/reactions/predict", r.URL.Path)
		var req PredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"Al", "O2"}, req.Reactants)
		assert.Equal(t, 2, req.MaxCandidates)
		_, _ = w.Write([]byte(`{"id":"p1","reactants":["Al(s)","O2(g)"],"equation":"4Al(s) + 3O2(g) → 2Al2O3(s)",
			"prediction":{"delta_g":-3164.6,"unit":"kJ","candidates":["Al2O3(s)","Al2O(g)"],"combinations":3,"valid":2,"attempts":{"rref":2}}}`))
	})

	res, err := c.Predictions().Predict(context.Background(), &PredictRequest{Reactants: []string{"Al", "O2"}, MaxCandidates: 2})
	require.NoError(t, err)
	assert.Equal(t, "4Al(s) + 3O2(g) → 2Al2O3(s)", res.Equation)
	require.NotNil(t, res.Prediction)
	assert.Equal(t, 2, res.Prediction.Attempts["rref"])

	_, err = c.Predictions().Predict(context.Background(), &PredictRequest{})
	assert.Error(t, err)
}

func TestPredictions_Transmute(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transmute", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"p2","reactants":["Al(s)","O2(g)"],"equation":"eq",
			"entities":[{"text":"aluminium","entity_type":"ELEMENT","source":"dictionary","formula":"Al"}],
			"resolutions":[{"name":"aluminium","formula":"Al","source":"dictionary"}]}`))
	})

	res, err := c.Predictions().Transmute(context.Background(), "aluminium burns in oxygen")
	require.NoError(t, err)
	assert.Equal(t, "eq", res.Equation)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "Al", res.Entities[0].Formula)
	assert.Equal(t, "dictionary", res.Resolutions[0].Source)

	_, err = c.Predictions().Transmute(context.Background(), "")
	assert.Error(t, err)
}

func TestPredictions_SubmitGetList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/predictions":
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"id":"` + recordID + `","reactants":["Al","O2"],"status":"pending","combinations":0}`))
		case r.URL.Path == "/api/v1/predictions/"+recordID:
			_, _ = w.Write([]byte(`{"id":"` + recordID + `","status":"completed","delta_g":-3164.6,"unit":"kJ"}`))
		case r.URL.Path == "/api/v1/predictions":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			assert.Equal(t, "10", r.URL.Query().Get("offset"))
			_, _ = w.Write([]byte(`{"records":[{"id":"` + recordID + `","status":"failed","error_code":"CHEM_007"}],"total":11,"limit":5,"offset":10}`))
		}
	})
	ctx := context.Background()

	rec, err := c.Predictions().Submit(ctx, &PredictRequest{Reactants: []string{"Al", "O2"}})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)
	assert.False(t, rec.Terminal())

	got, err := c.Predictions().Get(ctx, recordID)
	require.NoError(t, err)
	assert.True(t, got.Terminal())
	require.NotNil(t, got.DeltaG)
	assert.InDelta(t, -3164.6, *got.DeltaG, 1e-9)

	page, err := c.Predictions().List(ctx, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(11), page.Total)
	assert.Equal(t, "CHEM_007", page.Records[0].ErrorCode)

	_, err = c.Predictions().Get(ctx, "")
	assert.Error(t, err)
}

func TestPredictions_Wait(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		status := "running"
		if atomic.AddInt32(&calls, 1) >= 3 {
			status = "completed"
		}
		_, _ = w.Write([]byte(`{"id":"` + recordID + `","status":"` + status + `"}`))
	})

	rec, err := c.Predictions().Wait(context.Background(), recordID, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPredictions_WaitCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"` + recordID + `","status":"pending"}`))
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	rec, err := c.Predictions().Wait(ctx, recordID, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, rec)
	assert.Equal(t, StatusPending, rec.Status)
}
