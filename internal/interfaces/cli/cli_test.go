package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/alchemist/internal/config"
	"github.com/turtacn/alchemist/internal/infrastructure/dataset"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/internal/infrastructure/storage/minio"
	"github.com/turtacn/alchemist/internal/testutil"
)

func init() {
	color.NoColor = true
}

const thermoCSV = `formula,G,mass,name,abbrv
Al(s),0,26.98,aluminium,
O2(g),0,32.00,oxygen,
Al2O3(s),-1582300,101.96,aluminium oxide,alumina
`

const stoichCSV = `formula,0,8,13
Al(s),0,0,1
O2(g),0,2,0
Al2O3(s),0,3,2
`

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func fixtureDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	th, st, f := testutil.Tables(t)
	return &dataset.Dataset{Thermo: th, Stoich: st, Filter: f}
}

func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "thermo.csv"), []byte(thermoCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stoich.csv"), []byte(stoichCSV), 0o644))
	return dir
}

// run executes the root command against the fixture tables and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWith(t, []Option{WithDataset(fixtureDataset(t))}, args...)
}

func runWith(t *testing.T, opts []Option, args ...string) (string, error) {
	t.Helper()
	base := []Option{WithConfig(testConfig()), WithLogger(testutil.NewMockLogger())}
	cmd := NewRootCommand(append(base, opts...)...)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// memStore is an in-memory minio.ObjectStore.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Upload(_ context.Context, key string, r io.Reader, size int64, contentType string) (*minio.UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return &minio.UploadResult{Bucket: "test", ObjectKey: key, Size: size}, nil
}

func (m *memStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, minio.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) List(context.Context, string) ([]*minio.ObjectMetadata, error) { return nil, nil }

func storeFactory(s minio.ObjectStore) Option {
	return WithObjectStore(func(context.Context, *config.Config, logging.Logger) (minio.ObjectStore, error) {
		return s, nil
	})
}
