package main

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PauloFidalgo/cmov-5g/internal/application/generator"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/extractor/command"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/extractor/kpm"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/repository/memory"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/repository/sqlstore"
)

func testLogger() *infra.Logger {
	return infra.NewLogger(&bytes.Buffer{}, "test")
}

func TestProvideExtractor(t *testing.T) {
	cfg := infra.DefaultConfig()

	extractor, err := provideExtractor(cfg, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &kpm.Parser{}, extractor)

	cfg.ExtractorCommand = []string{"python3", "extract.py"}
	extractor, err = provideExtractor(cfg, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &command.Extractor{}, extractor)
}

func TestProvideStore(t *testing.T) {
	ctx := context.Background()
	cfg := infra.DefaultConfig()

	store, cleanup, err := provideStore(ctx, cfg, testLogger())
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, &memory.Repository{}, store)

	cfg.StorageDriver = infra.StorageSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "kpm.db")
	store, cleanup, err = provideStore(ctx, cfg, testLogger())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &sqlstore.Store{}, store)

	cfg.StorageDriver = "cassandra"
	_, _, err = provideStore(ctx, cfg, testLogger())
	assert.Error(t, err)
}

func TestInitApplicationWithMonitor(t *testing.T) {
	dir := t.TempDir()
	monitored := filepath.Join(dir, "live.txt")
	text := generator.New(generator.Config{RandSource: rand.NewSource(1)}, nil).Log(2)
	require.NoError(t, os.WriteFile(monitored, []byte(text), 0o644))

	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("monitor_path: "+monitored+"\n"), 0o644))
	t.Setenv("MONITOR_PATH", "")

	var out bytes.Buffer
	app, cleanup, err := initApplication(context.Background(), &out, configPath(configFile))
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, app.Session)
	assert.Equal(t, "live.txt", app.Session.Source())

	app.Session.Enable()
	result, err := app.Service.PollMonitor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
}

func TestInitApplicationWithoutMonitor(t *testing.T) {
	t.Setenv("MONITOR_PATH", "")
	t.Setenv("KPM_CONFIG", "")

	app, cleanup, err := initApplication(context.Background(), &bytes.Buffer{}, "")
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, app.Session)
	assert.Equal(t, infra.StorageMemory, app.Config.StorageDriver)
}

func TestWriteProcessed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	err := writeProcessed(dir, "ue1_dl_tcp_b20.txt", func(f *os.File) error {
		_, err := f.WriteString("id\n1\n")
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "ue1_dl_tcp_b20_processed.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", string(data))
}
