package infra

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"KPM_CONFIG", "HTTP_PORT", "STORAGE_DRIVER", "DB_DSN", "DB_PASSWORD",
		"EXTRACTOR_COMMAND", "EXTRACTOR_TIMEOUT_MS", "POLL_INTERVAL_MS",
		"MONITOR_PATH", "WORKER_COUNT", "TAIL_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 30*time.Second, cfg.ExtractorTimeout)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 50, cfg.TailSize)
	assert.Empty(t, cfg.ExtractorCommand)
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("EXTRACTOR_COMMAND", "perl extract.pl --csv")
	t.Setenv("POLL_INTERVAL_MS", "5000")
	t.Setenv("WORKER_COUNT", "8")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, StorageSQLite, cfg.StorageDriver)
	assert.Equal(t, []string{"perl", "extract.pl", "--csv"}, cfg.ExtractorCommand)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 8, cfg.WorkerCount)
}

func TestLoadConfigFileThenEnvironment(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "kpm.yaml")
	content := `
http_port: "7000"
monitor_path: /var/log/xapp.log
poll_interval: 10s
extractor_timeout: 5s
extractor_command: ["perl", "kpm.pl"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("KPM_CONFIG", path)
	t.Setenv("HTTP_PORT", "7100")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "7100", cfg.HTTPPort)
	assert.Equal(t, "/var/log/xapp.log", cfg.MonitorPath)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.ExtractorTimeout)
	assert.Equal(t, []string{"perl", "kpm.pl"}, cfg.ExtractorCommand)
	assert.Equal(t, "2112", cfg.MetricsPort)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "redis")
	_, err := LoadConfig("")
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("POLL_INTERVAL_MS", "0")
	_, err = LoadConfig("")
	assert.Error(t, err)

	clearEnv(t)
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLogConfigRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "test")
	cfg := DefaultConfig()
	cfg.DatabaseDSN = "postgres://user:secret@db/kpm"
	cfg.DatabasePassword = "secret"

	LogConfig(context.Background(), logger, cfg)

	output := buf.String()
	assert.NotContains(t, output, "secret")
	assert.Contains(t, output, "DB_PASSWORD set (redacted)")
	assert.Contains(t, output, "EXTRACTOR_COMMAND=(in-process)")
	assert.Greater(t, strings.Count(output, "\n"), 10)
}
