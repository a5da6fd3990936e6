package infra

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// Transport metrics
	RequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kpm_requests_total",
		Help: "Total number of HTTP and gRPC requests",
	})
	RequestErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kpm_request_errors_total",
		Help: "Total number of HTTP and gRPC request errors",
	})
	RequestDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kpm_request_duration_seconds",
		Help:    "Duration of request processing in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// Streaming metrics
	PollsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kpm_polls_total",
		Help: "Total number of polling iterations",
	})
	ReadErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kpm_read_errors_total",
		Help: "Total number of failed reads of monitored files",
	})
	RecordsMergedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kpm_records_merged_total",
		Help: "Total number of records appended to streaming datasets",
	})
	RecordsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kpm_records_dropped_total",
		Help: "Total number of extracted records discarded as already seen",
	})
	CursorOffsetBytes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kpm_cursor_offset_bytes",
		Help: "Read offset of each monitored file",
	}, []string{"source"})
	DatasetRecords = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kpm_dataset_records",
		Help: "Number of records held for each monitored file",
	}, []string{"source"})

	// Extraction metrics
	ExtractionFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kpm_extraction_failures_total",
		Help: "Total number of failed extraction runs by reason",
	}, []string{"reason"})
	ExtractionDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kpm_extraction_duration_seconds",
		Help:    "Duration of extraction runs in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// Batch metrics
	BatchFilesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kpm_batch_files_total",
		Help: "Total number of batch-ingested files by result",
	}, []string{"result"})
	WorkerPoolActiveGoroutines = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kpm_worker_pool_active_goroutines",
		Help: "Number of active batch worker goroutines",
	})

	// Storage metrics
	StoreAppendDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kpm_store_append_duration_seconds",
		Help:    "Duration of storage append operations in seconds",
		Buckets: prometheus.DefBuckets,
	})

	registerOnce      sync.Once
	metricsServerOnce sync.Once
)

func init() {
	InitMetrics()
}

// InitMetrics registers all Prometheus collectors used by the application.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestErrorsTotal,
			RequestDurationSeconds,
			PollsTotal,
			ReadErrorsTotal,
			RecordsMergedTotal,
			RecordsDroppedTotal,
			CursorOffsetBytes,
			DatasetRecords,
			ExtractionFailuresTotal,
			ExtractionDurationSeconds,
			BatchFilesTotal,
			WorkerPoolActiveGoroutines,
			StoreAppendDurationSeconds,
		)
	})
}

// Handler returns an HTTP handler that exposes the registered Prometheus metrics.
func Handler() http.Handler {
	InitMetrics()
	return promhttp.Handler()
}

// StartMetricsServer exposes Prometheus metrics on :port/metrics. An empty
// port disables the server.
func StartMetricsServer(port string, logger *Logger) {
	InitMetrics()
	if port == "" {
		return
	}
	metricsServerOnce.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		go func() {
			if err := http.ListenAndServe(":"+port, mux); err != nil {
				logger.Printf(context.Background(), "metrics server error: %v", err)
			}
		}()
	})
}

// HTTPMiddleware instruments HTTP handlers with request/latency metrics.
func HTTPMiddleware(next http.Handler) http.Handler {
	InitMetrics()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		defer func() {
			RequestDurationSeconds.Observe(time.Since(start).Seconds())
			RequestsTotal.Inc()
			if recorder.Status() >= http.StatusBadRequest {
				RequestErrorsTotal.Inc()
			}
		}()

		next.ServeHTTP(recorder, r)
	})
}

// GRPCUnaryInterceptor instruments gRPC unary handlers with request/latency metrics.
func GRPCUnaryInterceptor() grpc.UnaryServerInterceptor {
	InitMetrics()
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		start := time.Now()

		defer func() {
			RequestDurationSeconds.Observe(time.Since(start).Seconds())
			RequestsTotal.Inc()
			if status.Code(err) != codes.OK {
				RequestErrorsTotal.Inc()
			}
		}()

		return handler(ctx, req)
	}
}

// ObservePoll records one polling iteration of source.
func ObservePoll(source string, offset int64, records, merged, dropped int) {
	PollsTotal.Inc()
	ObserveDataset(source, offset, records)
	RecordsMergedTotal.Add(float64(merged))
	RecordsDroppedTotal.Add(float64(dropped))
}

// ObserveDataset sets the cursor and dataset size gauges of source.
func ObserveDataset(source string, offset int64, records int) {
	CursorOffsetBytes.WithLabelValues(source).Set(float64(offset))
	DatasetRecords.WithLabelValues(source).Set(float64(records))
}

// IncReadErrors counts a failed read of a monitored file.
func IncReadErrors() {
	ReadErrorsTotal.Inc()
}

// ObserveExtraction records the duration and, when reason is non-empty, the
// failure of an extraction run.
func ObserveExtraction(duration time.Duration, reason string) {
	if duration < 0 {
		duration = 0
	}
	ExtractionDurationSeconds.Observe(duration.Seconds())
	if reason != "" {
		ExtractionFailuresTotal.WithLabelValues(reason).Inc()
	}
}

// IncBatchFiles counts a batch-ingested file by result ("ok" or "failed").
func IncBatchFiles(result string) {
	BatchFilesTotal.WithLabelValues(result).Inc()
}

// RecordStoreAppend tracks a completed storage append.
func RecordStoreAppend(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	StoreAppendDurationSeconds.Observe(duration.Seconds())
}

// WorkerStarted increments the worker pool active goroutines gauge.
func WorkerStarted() {
	WorkerPoolActiveGoroutines.Inc()
}

// WorkerFinished decrements the worker pool active goroutines gauge.
func WorkerFinished() {
	WorkerPoolActiveGoroutines.Dec()
}

// statusRecorder captures the response status code for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Status() int {
	return r.status
}
