package platform

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/alchemist/internal/application/transmuter"
	"github.com/turtacn/alchemist/internal/config"
	"github.com/turtacn/alchemist/internal/domain/prediction"
	"github.com/turtacn/alchemist/internal/infrastructure/database/postgres"
	"github.com/turtacn/alchemist/internal/infrastructure/database/redis"
	"github.com/turtacn/alchemist/internal/infrastructure/dataset"
	"github.com/turtacn/alchemist/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/alchemist/internal/infrastructure/storage/minio"
	"github.com/turtacn/alchemist/internal/testutil"
	"github.com/turtacn/alchemist/pkg/errors"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func fixture(t *testing.T) Option {
	t.Helper()
	th, st, f := testutil.Tables(t)
	return WithDataset(&dataset.Dataset{Thermo: th, Stoich: st, Filter: f})
}

type publisher struct {
	mu   sync.Mutex
	msgs []*kafka.ProducerMessage
}

func (p *publisher) Publish(_ context.Context, msg *kafka.ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

type memStore struct {
	objects map[string][]byte
}

func (m *memStore) Upload(context.Context, string, io.Reader, int64, string) (*minio.UploadResult, error) {
	return nil, errors.Internal("read only")
}

func (m *memStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, minio.ErrObjectNotFound.WithDetail(key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) Delete(context.Context, string) error { return nil }

func (m *memStore) List(context.Context, string) ([]*minio.ObjectMetadata, error) { return nil, nil }

func TestNew_Minimal(t *testing.T) {
	logger := testutil.NewMockLogger()
	p, err := New(context.Background(), testConfig(), logger, fixture(t))
	require.NoError(t, err)
	defer p.Close()

	assert.Nil(t, p.Repository)
	assert.Nil(t, p.Cache)
	assert.Nil(t, p.Store)
	assert.Empty(t, p.Checks)
	assert.NotNil(t, p.Tika, "tika has a default url")
	assert.True(t, logger.HasMessage(logging.LevelInfo, "Platform ready"))

	res, err := p.Service.Predict(context.Background(), &transmuter.PredictRequest{Reactants: []string{"Al", "O2"}})
	require.NoError(t, err)
	assert.Equal(t, "4 Al(s) + 3 O2(g) → 2 Al2O3(s)", res.Equation)

	_, err = p.Service.Submit(context.Background(), &transmuter.PredictRequest{Reactants: []string{"Al", "O2"}})
	assert.True(t, errors.IsCode(err, errors.CodeServiceUnavailable))

	cls := p.Classifier.Classify("balance the reaction")
	assert.True(t, cls.IsStoichiometry)
}

func TestNew_BundledDatasetAndMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.Dataset.Dir = "../../data"
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "platform"}, logging.NewNopLogger())
	require.NoError(t, err)

	p, err := New(context.Background(), cfg, nil, WithCollector(collector))
	require.NoError(t, err)
	defer p.Close()
	assert.Greater(t, p.Dataset.Thermo.Len(), 50)

	p.Classifier.Classify("What is the capital of France?")

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `platform_dataset_rows{table="thermo"}`)
	assert.Contains(t, body, `platform_classifications_total{label="not stoichiometry"} 1`)
}

func TestNew_MissingDataset(t *testing.T) {
	cfg := testConfig()
	cfg.Dataset.Dir = t.TempDir()
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNew_MinIODataset(t *testing.T) {
	cfg := testConfig()
	cfg.Dataset.Source = "minio"

	_, err := New(context.Background(), cfg, nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam), "minio source needs a store: %v", err)

	store := &memStore{objects: map[string][]byte{
		"thermo.csv": []byte("formula,G,mass,name,abbrv\nAl(s),0,26.98,aluminium,\nO2(g),0,32.00,oxygen,\nAl2O3(s),-1582300,101.96,aluminium oxide,alumina\n"),
		"stoich.csv": []byte("formula,0,8,13\nAl(s),0,0,1\nO2(g),0,2,0\nAl2O3(s),0,3,2\n"),
	}}
	p, err := New(context.Background(), cfg, nil, WithObjectStore(store))
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, 3, p.Dataset.Thermo.Len())
}

func TestNew_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClientFromUniversal(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), &redis.RedisConfig{Addr: mr.Addr()}, nil)
	defer client.Close()

	p, err := New(context.Background(), testConfig(), nil, fixture(t), WithRedis(client))
	require.NoError(t, err)
	defer p.Close()

	require.NotNil(t, p.Cache)
	require.Len(t, p.Checks, 1)
	assert.Equal(t, "redis", p.Checks[0].Name)
	assert.NoError(t, p.Checks[0].Fn(context.Background()))

	mr.Close()
	assert.Error(t, p.Checks[0].Fn(context.Background()))
}

func TestNew_AsyncSubmit(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	pub := &publisher{}

	cfg := testConfig()
	p, err := New(context.Background(), cfg, nil, fixture(t),
		WithConnection(postgres.NewConnectionWithDB(db, nil)), WithPublisher(pub))
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO predictions").WillReturnResult(sqlmock.NewResult(0, 1))
	rec, err := p.Service.Submit(context.Background(), &transmuter.PredictRequest{Reactants: []string{"Al", "O2"}})
	require.NoError(t, err)
	assert.Equal(t, prediction.StatusPending, rec.Status)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, cfg.Kafka.RequestTopic, pub.msgs[0].Topic)
	assert.Equal(t, rec.ID.String(), string(pub.msgs[0].Key))

	mock.ExpectPing()
	require.Len(t, p.Checks, 1)
	assert.Equal(t, "postgres", p.Checks[0].Name)
	assert.NoError(t, p.Checks[0].Fn(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopics(t *testing.T) {
	cfg := testConfig()
	topics := Topics(cfg)
	assert.Equal(t, config.DefaultKafkaRequestTopic, topics.Requested)
	assert.Equal(t, config.DefaultKafkaCompletedTopic, topics.Completed)
	assert.Equal(t, config.DefaultKafkaDeadLetterTopic, topics.DeadLetter)
}

func TestReload(t *testing.T) {
	logger := testutil.NewMockLogger()
	p, err := New(context.Background(), testConfig(), logger, fixture(t))
	require.NoError(t, err)

	next := testConfig()
	next.Classifier.Threshold = 0.9
	next.Classifier.Keywords = []string{"alchemy"}
	p.Reload(next)

	assert.Equal(t, 0.9, p.Classifier.Threshold())
	assert.True(t, p.Classifier.Classify("alchemy").IsStoichiometry)
	assert.False(t, p.Classifier.Classify("moles of water").IsStoichiometry)
	assert.True(t, logger.HasMessage(logging.LevelInfo, "Configuration reloaded"))
}

func TestClose_ReverseOrder(t *testing.T) {
	var order []string
	p := &Platform{}
	p.closers = []func() error{
		func() error { order = append(order, "first"); return nil },
		func() error { order = append(order, "second"); return errors.Internal("boom") },
	}
	err := p.Close()
	assert.Error(t, err)
	assert.Equal(t, []string{"second", "first"}, order)
	assert.NoError(t, p.Close(), "closers run once")
}
