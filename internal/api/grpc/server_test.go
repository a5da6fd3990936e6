package grpcapi_test

import (
	"context"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	grpcapi "github.com/PauloFidalgo/cmov-5g/internal/api/grpc"
	"github.com/PauloFidalgo/cmov-5g/internal/application/batch"
	"github.com/PauloFidalgo/cmov-5g/internal/application/generator"
	"github.com/PauloFidalgo/cmov-5g/internal/application/stream"
	"github.com/PauloFidalgo/cmov-5g/internal/application/telemetry"
	"github.com/PauloFidalgo/cmov-5g/internal/application/worker"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/extractor/kpm"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/repository/memory"
)

type fixture struct {
	client  *grpcapi.Client
	conn    *grpc.ClientConn
	service *telemetry.Telemetry
}

func newFixture(t *testing.T, monitorPath string) fixture {
	t.Helper()

	store := memory.New()
	ingestor := batch.New(kpm.New(), nil)
	opts := telemetry.Options{
		Store:    store,
		Ingestor: ingestor,
		Pool:     worker.New(1, ingestor, store, nil),
		TailSize: 2,
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
	service := telemetry.New(opts)

	listener := bufconn.Listen(1 << 20)
	server := grpcapi.NewServer(service, nil)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return fixture{client: grpcapi.NewClient(conn), conn: conn, service: service}
}

func logText(seed int64, n int) string {
	return generator.New(generator.Config{RandSource: rand.NewSource(seed)}, nil).Log(n)
}

func TestServiceIsRegistered(t *testing.T) {
	t.Parallel()

	srv := grpcapi.NewServer(nil, nil)
	info := srv.GetServiceInfo()
	require.Contains(t, info, grpcapi.ServiceName)

	methods := make([]string, 0, len(info[grpcapi.ServiceName].Methods))
	for _, m := range info[grpcapi.ServiceName].Methods {
		methods = append(methods, m.Name)
	}
	assert.ElementsMatch(t, []string{"ListSources", "TailRecords", "MonitorStatus", "ResetMonitor"}, methods)
}

func TestListSourcesAndTailRecords(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	ctx := context.Background()

	ds, err := f.service.Ingest(ctx, "ue1_dl_tcp_b20.txt", logText(11, 5))
	require.NoError(t, err)

	sources, err := f.client.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "ue1_dl_tcp_b20.txt", sources[0].Source)
	assert.Equal(t, 5, sources[0].Records)
	assert.Equal(t, int64(5), sources[0].MaxID)

	records, err := f.client.TailRecords(ctx, "ue1_dl_tcp_b20.txt", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ds.Records[2:], records)

	records, err = f.client.TailRecords(ctx, "ue1_dl_tcp_b20.txt", 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestTailRecordsErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	ctx := context.Background()

	_, err := f.client.TailRecords(ctx, "missing.txt", 1)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = f.client.TailRecords(ctx, "", 1)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	req, err := structpb.NewStruct(map[string]any{"source": "a.txt", "last": -2})
	require.NoError(t, err)
	err = f.conn.Invoke(ctx, "/kpm.v1.Telemetry/TailRecords", req, new(structpb.ListValue))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestMonitorWithoutSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	ctx := context.Background()

	_, err := f.client.MonitorStatus(ctx)
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, codes.NotFound, status.Code(f.client.ResetMonitor(ctx)))
}

func TestMonitorStatusAndReset(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ue3_dl_udp_b10.txt")
	require.NoError(t, os.WriteFile(path, []byte(logText(2, 4)), 0o644))

	f := newFixture(t, path)
	ctx := context.Background()

	_, err := f.service.StartMonitor(ctx)
	require.NoError(t, err)
	result, err := f.service.PollMonitor(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, result.Added)

	st, err := f.client.MonitorStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "polling", st.State)
	assert.Equal(t, 4, st.Records)
	assert.Equal(t, int64(4), st.MaxID)
	assert.Equal(t, "ue3_dl_udp_b10.txt", st.Source)
	assert.Equal(t, "3 UEs | Downlink (Server → UE) | UDP | 10MHz", st.Label)
	assert.Positive(t, st.Offset)

	require.NoError(t, f.client.ResetMonitor(ctx))

	st, err = f.client.MonitorStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "idle", st.State)
	assert.Zero(t, st.Records)
	assert.Zero(t, st.Offset)

	_, err = f.client.TailRecords(ctx, "ue3_dl_udp_b10.txt", 1)
	assert.Equal(t, codes.NotFound, status.Code(err))
}
