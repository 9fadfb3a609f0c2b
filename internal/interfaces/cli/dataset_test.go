package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/alchemist/internal/config"
	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/internal/infrastructure/storage/minio"
	"github.com/turtacn/alchemist/internal/testutil"
	"github.com/turtacn/alchemist/pkg/errors"
)

func TestDatasetVerify_DataDir(t *testing.T) {
	dir := writeDataset(t)
	out, err := runWith(t, nil, "dataset", "verify", "--data-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, dir+": 3 thermodynamic rows, 3 compositions\n", out)
}

func TestDatasetVerify_Bundled(t *testing.T) {
	out, err := runWith(t, nil, "dataset", "verify", "--data-dir", filepath.Join("..", "..", "..", "data"), "-o", "json")
	require.NoError(t, err)
	var v DatasetView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Greater(t, v.ThermoRows, 50)
	assert.Positive(t, v.StoichEntries)
}

func TestDatasetVerify_FromMinIO(t *testing.T) {
	store := newMemStore()
	store.objects["thermo.csv"] = []byte(thermoCSV)
	store.objects["stoich.csv"] = []byte(stoichCSV)

	cfg := testConfig()
	cfg.Dataset.Source = "minio"
	out, err := runWith(t, []Option{WithConfig(cfg), storeFactory(store)}, "dataset", "verify")
	require.NoError(t, err)
	assert.Equal(t, "minio: 3 thermodynamic rows, 3 compositions\n", out)
}

func TestDatasetVerify_MissingDir(t *testing.T) {
	_, err := runWith(t, nil, "dataset", "verify", "--data-dir", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDatasetPush(t *testing.T) {
	dir := writeDataset(t)
	store := newMemStore()
	logger := testutil.NewMockLogger()

	out, err := runWith(t, []Option{storeFactory(store), WithLogger(logger)}, "dataset", "push", "--dir", dir, "-o", "json")
	require.NoError(t, err)

	var v UploadView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, config.DefaultMinIOBucket, v.Bucket)
	assert.Equal(t, []string{"thermo.csv", "stoich.csv"}, v.Objects)
	assert.Equal(t, thermoCSV, string(store.objects["thermo.csv"]))
	assert.Equal(t, stoichCSV, string(store.objects["stoich.csv"]))
	assert.Equal(t, "text/csv", store.types["stoich.csv"])
	assert.True(t, logger.HasMessage(logging.LevelInfo, "Dataset object uploaded"))
}

func TestDatasetPush_InvalidDatasetIsNotUploaded(t *testing.T) {
	dir := writeDataset(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stoich.csv"), []byte("formula,0,8,13\nAl(s),x,0,1\n"), 0o644))
	store := newMemStore()

	_, err := runWith(t, []Option{storeFactory(store)}, "dataset", "push", "--dir", dir)
	require.Error(t, err)
	assert.Empty(t, store.objects)
}

func TestDatasetPush_MinIODisabled(t *testing.T) {
	dir := writeDataset(t)
	_, err := runWith(t, nil, "dataset", "push", "--dir", dir)
	assert.True(t, errors.IsCode(err, errors.CodeServiceUnavailable), "%v", err)
}

func TestDatasetPush_StoreError(t *testing.T) {
	dir := writeDataset(t)
	failing := WithObjectStore(func(context.Context, *config.Config, logging.Logger) (minio.ObjectStore, error) {
		return nil, errors.Unavailable("connection refused")
	})
	_, err := runWith(t, []Option{failing}, "dataset", "push", "--dir", dir)
	assert.True(t, errors.IsCode(err, errors.CodeServiceUnavailable))
}
