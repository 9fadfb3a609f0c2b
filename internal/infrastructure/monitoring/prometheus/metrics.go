package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric alchemist records.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Reaction prediction
	PredictionsTotal     CounterVec
	PredictionDuration   HistogramVec
	PredictionCandidates HistogramVec
	BalanceAttemptsTotal CounterVec

	// Name resolution and document parsing
	ResolutionsTotal     CounterVec
	PubChemRequestsTotal CounterVec
	PubChemDuration      HistogramVec
	ParserAttemptsTotal  CounterVec
	EntitiesExtracted    CounterVec
	ClassificationsTotal CounterVec

	// Infrastructure
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	MessagesPublished      CounterVec
	MessageProcessDuration HistogramVec
	DatasetRows            GaugeVec
}

var (
	DefaultHTTPDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultPredictionDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30}
	DefaultCandidateBuckets          = []float64{0, 1, 2, 4, 8, 12, 16, 32, 64}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.PredictionsTotal = collector.RegisterCounter("predictions_total", "Reaction predictions by outcome", "source", "outcome")
	m.PredictionDuration = collector.RegisterHistogram("prediction_duration_seconds", "Reaction prediction duration", DefaultPredictionDurationBuckets, "source")
	m.PredictionCandidates = collector.RegisterHistogram("prediction_candidates", "Candidate product species considered per prediction", DefaultCandidateBuckets)
	m.BalanceAttemptsTotal = collector.RegisterCounter("balance_attempts_total", "Stoichiometric balance attempts by result", "result")

	m.ResolutionsTotal = collector.RegisterCounter("name_resolutions_total", "Chemical name resolutions by source", "source", "outcome")
	m.PubChemRequestsTotal = collector.RegisterCounter("pubchem_requests_total", "PubChem requests by status", "status")
	m.PubChemDuration = collector.RegisterHistogram("pubchem_request_duration_seconds", "PubChem request duration", DefaultHTTPDurationBuckets)
	m.ParserAttemptsTotal = collector.RegisterCounter("document_parser_attempts_total", "Document parser attempts by result", "result")
	m.EntitiesExtracted = collector.RegisterCounter("chemical_entities_extracted_total", "Chemical entities extracted by type", "entity_type")
	m.ClassificationsTotal = collector.RegisterCounter("classifications_total", "Question classifications by label", "label")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.MessagesPublished = collector.RegisterCounter("messages_published_total", "Messages published by topic and status", "topic", "status")
	m.MessageProcessDuration = collector.RegisterHistogram("message_process_duration_seconds", "Message processing duration", DefaultPredictionDurationBuckets, "topic")
	m.DatasetRows = collector.RegisterGauge("dataset_rows", "Rows loaded per dataset table", "table")

	return m
}

// NewNoopAppMetrics returns AppMetrics whose metrics discard every sample.
func NewNoopAppMetrics() *AppMetrics {
	return NewAppMetrics(NewNoopCollector())
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPrediction records one prediction run.
func RecordPrediction(m *AppMetrics, source string, candidates int, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.PredictionsTotal.WithLabelValues(source, outcome).Inc()
	m.PredictionDuration.WithLabelValues(source).Observe(duration.Seconds())
	m.PredictionCandidates.WithLabelValues().Observe(float64(candidates))
}

// RecordCacheAccess records a cache hit or miss.
func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordPublish records one message publish attempt.
func RecordPublish(m *AppMetrics, topic string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.MessagesPublished.WithLabelValues(topic, status).Inc()
}

// RecordPubChemRequest records one PubChem call.
func RecordPubChemRequest(m *AppMetrics, status string, duration time.Duration) {
	m.PubChemRequestsTotal.WithLabelValues(status).Inc()
	m.PubChemDuration.WithLabelValues().Observe(duration.Seconds())
}

// RecordResolution records where a chemical name was resolved.
func RecordResolution(m *AppMetrics, source string, err error) {
	outcome := "resolved"
	if err != nil {
		outcome = "unresolved"
	}
	m.ResolutionsTotal.WithLabelValues(source, outcome).Inc()
}
