//go:build integration

// Package integration runs the platform against real backing services started
// with testcontainers. Run with: go test -tags integration ./test/integration/...
package integration

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/alchemist/internal/config"
	"github.com/turtacn/alchemist/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
)

const (
	// EnvKafkaBrokers points the Kafka round trip test at a running broker.
	EnvKafkaBrokers = "ALCHEMIST_TEST_KAFKA_BROKERS"

	bundledDataDir = "../../data"
	startupTimeout = 90 * time.Second
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })
	return container
}

func startPostgres(t *testing.T) (string, int) {
	t.Helper()
	c := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "alchemist_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(startupTimeout),
	})
	ctx := context.Background()
	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	return host, port.Int()
}

func startRedis(t *testing.T) string {
	t.Helper()
	c := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(startupTimeout),
	})
	addr, err := c.PortEndpoint(context.Background(), "6379/tcp", "")
	require.NoError(t, err)
	return addr
}

func startMinIO(t *testing.T) string {
	t.Helper()
	c := startContainer(t, testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "alchemist",
			"MINIO_ROOT_PASSWORD": "alchemist-secret",
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").
			WithPort("9000/tcp").
			WithStartupTimeout(startupTimeout),
	})
	addr, err := c.PortEndpoint(context.Background(), "9000/tcp", "")
	require.NoError(t, err)
	return addr
}

// baseConfig reads the bundled dataset with every optional backend disabled.
func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Dataset.Dir = bundledDataDir
	cfg.Tika.URL = ""
	return cfg
}

func testLogger(t *testing.T) logging.Logger {
	t.Helper()
	log, err := logging.NewLogger(logging.LogConfig{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	return log
}

func kafkaBrokers(t *testing.T) []string {
	t.Helper()
	v := os.Getenv(EnvKafkaBrokers)
	if v == "" {
		t.Skipf("set %s to run Kafka tests", EnvKafkaBrokers)
	}
	return strings.Split(v, ",")
}

func uniqueTopic(prefix string) string {
	return prefix + "." + strconv.FormatInt(time.Now().UnixNano(), 36)
}

// capturePublisher records published messages in memory.
type capturePublisher struct {
	mu   sync.Mutex
	msgs []*kafka.ProducerMessage
}

func (c *capturePublisher) Publish(_ context.Context, msg *kafka.ProducerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *capturePublisher) last(t *testing.T) *kafka.ProducerMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.msgs)
	return c.msgs[len(c.msgs)-1]
}
