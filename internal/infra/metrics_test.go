package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHTTPMiddlewareCountsErrors(t *testing.T) {
	requests := testutil.ToFloat64(RequestsTotal)
	failures := testutil.ToFloat64(RequestErrorsTotal)

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))

	assert.Equal(t, requests+2, testutil.ToFloat64(RequestsTotal))
	assert.Equal(t, failures+1, testutil.ToFloat64(RequestErrorsTotal))
}

func TestGRPCUnaryInterceptorCountsErrors(t *testing.T) {
	requests := testutil.ToFloat64(RequestsTotal)
	failures := testutil.ToFloat64(RequestErrorsTotal)
	interceptor := GRPCUnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/kpm.v1.Telemetry/ListSources"}

	_, err := interceptor(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)

	_, err = interceptor(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "missing")
	})
	require.Error(t, err)

	assert.Equal(t, requests+2, testutil.ToFloat64(RequestsTotal))
	assert.Equal(t, failures+1, testutil.ToFloat64(RequestErrorsTotal))
}

func TestObservePollUpdatesGauges(t *testing.T) {
	merged := testutil.ToFloat64(RecordsMergedTotal)
	dropped := testutil.ToFloat64(RecordsDroppedTotal)

	ObservePoll("metrics-test.log", 512, 10, 3, 2)

	assert.Equal(t, float64(512), testutil.ToFloat64(CursorOffsetBytes.WithLabelValues("metrics-test.log")))
	assert.Equal(t, float64(10), testutil.ToFloat64(DatasetRecords.WithLabelValues("metrics-test.log")))
	assert.Equal(t, merged+3, testutil.ToFloat64(RecordsMergedTotal))
	assert.Equal(t, dropped+2, testutil.ToFloat64(RecordsDroppedTotal))
}

func TestObserveExtractionCountsFailuresByReason(t *testing.T) {
	before := testutil.ToFloat64(ExtractionFailuresTotal.WithLabelValues("timeout"))

	ObserveExtraction(-time.Second, "")
	ObserveExtraction(time.Millisecond, "timeout")

	assert.Equal(t, before+1, testutil.ToFloat64(ExtractionFailuresTotal.WithLabelValues("timeout")))
}

func TestWorkerGauge(t *testing.T) {
	before := testutil.ToFloat64(WorkerPoolActiveGoroutines)

	WorkerStarted()
	assert.Equal(t, before+1, testutil.ToFloat64(WorkerPoolActiveGoroutines))
	WorkerFinished()
	assert.Equal(t, before, testutil.ToFloat64(WorkerPoolActiveGoroutines))
}

func TestHandlerExposesMetrics(t *testing.T) {
	IncBatchFiles("ok")

	recorder := httptest.NewRecorder()
	Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, strings.Contains(recorder.Body.String(), "kpm_batch_files_total"))
}
