package command_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/extractor/command"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/extractor/kpm"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/extractor/table"
)

const entry = `1 KPM ind_msg latency = 1748351985647759 [μs]
DRB.PdcpSduVolumeDL = 1355748 [kb]
DRB.PdcpSduVolumeUL = 12883 [kb]
DRB.RlcSduDelayDl = 3948.79 [μs]
DRB.UEThpDl = 1364419.02 [kbps]
DRB.UEThpUl = 13190.45 [kbps]
RRU.PrbTotDl = 201009 [PRBs]
RRU.PrbTotUl = 9238 [PRBs]
`

// TestHelperProcess is the extraction engine launched by the tests below.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("HELPER_MODE") {
	case "csv", "warn":
		input, _ := io.ReadAll(os.Stdin)
		tbl, err := kpm.New().Extract(context.Background(), string(input))
		if err != nil {
			os.Exit(0)
		}
		if os.Getenv("HELPER_MODE") == "warn" {
			fmt.Fprintln(os.Stderr, "deprecated option")
		}
		_ = table.Encode(os.Stdout, tbl)
	case "fail":
		fmt.Fprintln(os.Stderr, "cannot parse input")
		os.Exit(3)
	case "sleep":
		time.Sleep(10 * time.Second)
	case "garbage":
		fmt.Fprint(os.Stdout, "id,latency\n1,2,3\n")
	case "empty":
	}
	os.Exit(0)
}

type stubLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *stubLogger) Printf(_ context.Context, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf(format, v...))
}

func (l *stubLogger) Println(_ context.Context, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprint(v...))
}

func newHelperExtractor(t *testing.T, mode string, timeout time.Duration, logger *stubLogger) (*command.Extractor, string) {
	t.Helper()
	dir := t.TempDir()
	extractor, err := command.New(command.Config{
		Path:    os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--"},
		Env:     []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_MODE=" + mode},
		Timeout: timeout,
		TempDir: dir,
	}, logger)
	require.NoError(t, err)
	return extractor, dir
}

func assertWorkspaceReleased(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary input files must be removed")
}

func TestExtractDecodesEngineOutput(t *testing.T) {
	extractor, dir := newHelperExtractor(t, "csv", 10*time.Second, nil)

	tbl, err := extractor.Extract(context.Background(), entry)
	require.NoError(t, err)

	ds, err := tbl.Dataset()
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, int64(1), ds.Records[0].ID)
	assert.Equal(t, int64(1748351985647759), ds.Records[0].Latency)
	assert.InDelta(t, 1364419.02, ds.Records[0].UEThpDl, 1e-9)
	assertWorkspaceReleased(t, dir)
}

func TestExtractLogsStderrOnSuccess(t *testing.T) {
	logger := &stubLogger{}
	extractor, _ := newHelperExtractor(t, "warn", 10*time.Second, logger)

	tbl, err := extractor.Extract(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	logger.mu.Lock()
	defer logger.mu.Unlock()
	require.Len(t, logger.messages, 1)
	assert.Contains(t, logger.messages[0], "deprecated option")
}

func TestExtractFailureModes(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want error
	}{
		{name: "non-zero exit", mode: "fail", want: domain.ErrExtractionFailed},
		{name: "empty output", mode: "empty", want: domain.ErrNoRecords},
		{name: "unparseable output", mode: "garbage", want: domain.ErrMalformedOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor, dir := newHelperExtractor(t, tt.mode, 10*time.Second, nil)

			_, err := extractor.Extract(context.Background(), entry)

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assertWorkspaceReleased(t, dir)
		})
	}
}

func TestExtractFailureCarriesStderr(t *testing.T) {
	extractor, _ := newHelperExtractor(t, "fail", 10*time.Second, nil)

	_, err := extractor.Extract(context.Background(), entry)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "cannot parse input")
}

func TestExtractTimeout(t *testing.T) {
	extractor, dir := newHelperExtractor(t, "sleep", 200*time.Millisecond, nil)

	start := time.Now()
	_, err := extractor.Extract(context.Background(), entry)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExtractionTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assertWorkspaceReleased(t, dir)
}

func TestExtractMissingWorkspace(t *testing.T) {
	extractor, err := command.New(command.Config{
		Path:    os.Args[0],
		TempDir: strings.Repeat("missing/", 3),
	}, nil)
	require.NoError(t, err)

	_, err = extractor.Extract(context.Background(), entry)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrWorkspace))
}

func TestNewRequiresPath(t *testing.T) {
	_, err := command.New(command.Config{}, nil)
	assert.Error(t, err)
}
