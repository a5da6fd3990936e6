package telemetry_test

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PauloFidalgo/cmov-5g/internal/application/batch"
	"github.com/PauloFidalgo/cmov-5g/internal/application/generator"
	"github.com/PauloFidalgo/cmov-5g/internal/application/stream"
	"github.com/PauloFidalgo/cmov-5g/internal/application/telemetry"
	"github.com/PauloFidalgo/cmov-5g/internal/application/worker"
	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/extractor/kpm"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/repository/memory"
)

func logText(seed int64, n int) string {
	return generator.New(generator.Config{RandSource: rand.NewSource(seed)}, nil).Log(n)
}

func newService(t *testing.T, monitorPath string) (*telemetry.Telemetry, *memory.Repository) {
	t.Helper()

	store := memory.New()
	ingestor := batch.New(kpm.New(), nil)
	opts := telemetry.Options{
		Store:    store,
		Ingestor: ingestor,
		Pool:     worker.New(2, ingestor, store, nil),
	}
	if monitorPath != "" {
		session, err := stream.New(stream.Config{
			Path:      monitorPath,
			Extractor: kpm.New(),
			Sink:      store,
			Splitter:  kpm.SplitComplete,
		}, nil)
		require.NoError(t, err)
		opts.Session = session
	}
	return telemetry.New(opts), store
}

func TestIngestStoresTaggedRecords(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, "")
	ctx := context.Background()

	ds, err := svc.Ingest(ctx, "/uploads/ue1_ul_tcp_b20.txt", logText(1, 6))
	require.NoError(t, err)
	assert.Equal(t, 6, ds.Len())

	records, err := svc.Records(ctx, "ue1_ul_tcp_b20.txt", 0)
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, "ue1_ul_tcp_b20.txt", records[0].SourceFile)

	sources, err := svc.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, int64(6), sources[0].MaxID)
}

func TestIngestRejectsInvalidNameAndEmptyLog(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, "")
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "  ", logText(1, 1))
	assert.True(t, errors.Is(err, telemetry.ErrInvalidSource))

	_, err = svc.Ingest(ctx, "empty.txt", "no indications here\n")
	var ingestErr *domain.IngestError
	require.True(t, errors.As(err, &ingestErr))
	assert.Equal(t, "empty.txt", ingestErr.Source)
	assert.True(t, errors.Is(err, domain.ErrNoRecords))

	_, err = svc.Records(ctx, "empty.txt", 0)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestTailUsesDefaultSize(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, "")
	ctx := context.Background()
	_, err := svc.Ingest(ctx, "a.txt", logText(2, telemetry.DefaultTailSize+5))
	require.NoError(t, err)

	tail, err := svc.Tail(ctx, "a.txt", 0)
	require.NoError(t, err)
	require.Len(t, tail, telemetry.DefaultTailSize)
	assert.Equal(t, int64(6), tail[0].ID)

	tail, err = svc.Tail(ctx, "a.txt", 3)
	require.NoError(t, err)
	assert.Len(t, tail, 3)

	_, err = svc.Tail(ctx, "", 3)
	assert.True(t, errors.Is(err, telemetry.ErrInvalidSource))
}

func TestSummary(t *testing.T) {
	t.Parallel()

	svc, store := newService(t, "")
	store.Seed("a.txt", []domain.Record{
		{ID: 1, Latency: 10, UEThpDl: 100, UEThpUl: 10, RlcSduDelayDl: 2},
		{ID: 2, Latency: 30, UEThpDl: 300, UEThpUl: 30, RlcSduDelayDl: 4},
	})

	summary, err := svc.Summary(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Records)
	assert.InDelta(t, 200.0, summary.MeanUEThpDl, 1e-9)
	assert.InDelta(t, 20.0, summary.MeanLatency, 1e-9)
	assert.InDelta(t, 200.0, summary.DeltaUEThpDl, 1e-9)
	require.NotNil(t, summary.Latest)
	assert.Equal(t, int64(2), summary.Latest.ID)

	_, err = svc.Summary(context.Background(), "missing.txt")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestIngestFilesReportsPerFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(good, []byte(logText(3, 2)), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("nothing to see"), 0o644))

	svc, _ := newService(t, "")
	results := svc.IngestFiles(context.Background(), []string{bad, good})

	require.Len(t, results, 2)
	assert.Equal(t, "bad.txt", results[0].Source)
	assert.True(t, errors.Is(results[0].Err, domain.ErrNoRecords))
	assert.Equal(t, "good.txt", results[1].Source)
	require.NoError(t, results[1].Err)

	records, err := svc.Records(context.Background(), "good.txt", 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestMonitorOperationsWithoutSession(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, "")
	ctx := context.Background()

	_, err := svc.MonitorStatus(ctx)
	assert.True(t, errors.Is(err, domain.ErrNoMonitor))
	_, err = svc.StartMonitor(ctx)
	assert.True(t, errors.Is(err, domain.ErrNoMonitor))
	_, err = svc.StopMonitor(ctx)
	assert.True(t, errors.Is(err, domain.ErrNoMonitor))
	_, err = svc.ResetMonitor(ctx)
	assert.True(t, errors.Is(err, domain.ErrNoMonitor))
	_, err = svc.PollMonitor(ctx)
	assert.True(t, errors.Is(err, domain.ErrNoMonitor))
}

func TestMonitorLifecycle(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "live.txt")
	gen := generator.New(generator.Config{RandSource: rand.NewSource(9)}, nil)
	require.NoError(t, os.WriteFile(path, []byte(gen.Header()+gen.Entry(1)+gen.Entry(2)), 0o644))

	svc, _ := newService(t, path)
	ctx := context.Background()

	result, err := svc.PollMonitor(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Added, "idle session must not poll")

	status, err := svc.StartMonitor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "polling", status.State)

	result, err = svc.PollMonitor(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(gen.Entry(3))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	result, err = svc.PollMonitor(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)

	records, err := svc.Records(ctx, "live.txt", 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	status, err = svc.StopMonitor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "idle", status.State)
	assert.Equal(t, 3, status.Records)

	status, err = svc.ResetMonitor(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Records)
	assert.Zero(t, status.Offset)

	_, err = svc.Records(ctx, "live.txt", 0)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.StartMonitor(ctx)
	require.NoError(t, err)
	result, err = svc.PollMonitor(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Added)
}
