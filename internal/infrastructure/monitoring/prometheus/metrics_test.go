package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppMetrics_Registered(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)
	require.NotNil(t, m)

	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.PredictionsTotal)
	assert.NotNil(t, m.BalanceAttemptsTotal)
	assert.NotNil(t, m.PubChemRequestsTotal)
	assert.NotNil(t, m.DatasetRows)
}

func TestRecordHTTPRequest(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	RecordHTTPRequest(m, "POST", "/transmuter", 200, 30*time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="POST",path="/transmuter",status_code="200"} 1`)
	assert.Contains(t, out, "test_unit_http_request_duration_seconds_bucket")
}

func TestRecordPrediction_Outcomes(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	RecordPrediction(m, "api", 7, time.Millisecond, nil)
	RecordPrediction(m, "api", 3, time.Millisecond, errors.New("no reaction"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_predictions_total{outcome="success",source="api"} 1`)
	assert.Contains(t, out, `test_unit_predictions_total{outcome="failure",source="api"} 1`)
	assert.Contains(t, out, "test_unit_prediction_candidates_count 2")
}

func TestRecordCacheAccess(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	RecordCacheAccess(m, "formula", true)
	RecordCacheAccess(m, "formula", false)
	RecordCacheAccess(m, "formula", false)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_cache_hits_total{cache="formula"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{cache="formula"} 2`)
}

func TestRecordPublish(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	RecordPublish(m, "alchemist.prediction.completed", nil)
	RecordPublish(m, "alchemist.prediction.completed", errors.New("broker down"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `status="ok"`)
	assert.Contains(t, out, `status="error"`)
}

func TestNewNoopAppMetrics_DoesNotPanic(t *testing.T) {
	m := NewNoopAppMetrics()
	RecordPrediction(m, "cli", 1, time.Second, nil)
	RecordHTTPRequest(m, "GET", "/", 200, time.Millisecond)
}

func TestRecordPubChemAndResolution(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	RecordPubChemRequest(m, "ok", 20*time.Millisecond)
	RecordResolution(m, "pubchem", nil)
	RecordResolution(m, "pubchem", errors.New("x"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_pubchem_requests_total{status="ok"} 1`)
	assert.Contains(t, out, `test_unit_name_resolutions_total{outcome="resolved",source="pubchem"} 1`)
	assert.Contains(t, out, `test_unit_name_resolutions_total{outcome="unresolved",source="pubchem"} 1`)
}
