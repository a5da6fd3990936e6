package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"github.com/PauloFidalgo/cmov-5g/internal/application/telemetry"
	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/extractor/table"
	"github.com/PauloFidalgo/cmov-5g/internal/pkg/label"
)

const (
	paramSource = "source"
	queryLast   = "last"
	queryName   = "name"

	// maxUploadBytes bounds the body of an ingest request.
	maxUploadBytes = 64 << 20
)

// handler contains the HTTP handlers and shared dependencies for the REST API.
type handler struct {
	service telemetry.Service
	logger  domain.Logger
}

func registerRoutes(router chi.Router, h *handler) {
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if h.logger != nil {
			h.logger.Println(r.Context(), "health check OK")
		}
		h.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	})
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	})

	router.Get("/sources", h.handleListSources)
	router.Route("/sources/{source}", func(r chi.Router) {
		r.Get("/records", h.handleRecords)
		r.Get("/records.csv", h.handleRecordsCSV)
		r.Get("/summary", h.handleSummary)
	})
	router.Post("/ingest", h.handleIngest)

	router.Get("/monitor", h.handleMonitorStatus)
	router.Post("/monitor/start", h.handleMonitorStart)
	router.Post("/monitor/stop", h.handleMonitorStop)
	router.Post("/monitor/reset", h.handleMonitorReset)
	router.Post("/monitor/poll", h.handleMonitorPoll)
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

type ingestResponse struct {
	Source  string `json:"source"`
	Label   string `json:"label"`
	Records int    `json:"records"`
	MaxID   int64  `json:"max_id"`
}

type pollResponse struct {
	Result domain.PollResult    `json:"result"`
	Status domain.MonitorStatus `json:"status"`
}

func (h *handler) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.service.Sources(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sources)
}

func (h *handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	last, ok := h.parseLast(w, r)
	if !ok {
		return
	}

	records, err := h.service.Records(r.Context(), chi.URLParam(r, paramSource), last)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *handler) handleRecordsCSV(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, paramSource)
	records, err := h.service.Records(r.Context(), source, 0)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	stem := strings.TrimSuffix(source, filepath.Ext(source))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+stem+`_processed.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := table.WriteRecords(w, records); err != nil && h.logger != nil {
		h.logger.Printf(r.Context(), "http: writing csv for %s: %v", source, err)
	}
}

func (h *handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), chi.URLParam(r, paramSource))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get(queryName))
	if name == "" {
		h.writeError(w, http.StatusBadRequest, "missing required query parameter name")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "log file too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	ds, err := h.service.Ingest(r.Context(), name, string(body))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	source := filepath.Base(name)
	h.writeJSON(w, http.StatusCreated, ingestResponse{
		Source:  source,
		Label:   label.Describe(source),
		Records: ds.Len(),
		MaxID:   ds.MaxID(),
	})
}

func (h *handler) handleMonitorStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.MonitorStatus(r.Context())
	h.respondStatus(w, r, status, err)
}

func (h *handler) handleMonitorStart(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.StartMonitor(r.Context())
	h.respondStatus(w, r, status, err)
}

func (h *handler) handleMonitorStop(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.StopMonitor(r.Context())
	h.respondStatus(w, r, status, err)
}

func (h *handler) handleMonitorReset(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.ResetMonitor(r.Context())
	h.respondStatus(w, r, status, err)
}

func (h *handler) handleMonitorPoll(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.PollMonitor(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	status, err := h.service.MonitorStatus(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pollResponse{Result: result, Status: status})
}

func (h *handler) respondStatus(w http.ResponseWriter, r *http.Request, status domain.MonitorStatus, err error) {
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *handler) parseLast(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get(queryLast)
	if raw == "" {
		return 0, true
	}
	last, err := strconv.Atoi(raw)
	if err != nil || last < 0 {
		h.writeError(w, http.StatusBadRequest, "last must be a non-negative integer")
		return 0, false
	}
	return last, true
}

func (h *handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ingestErr *domain.IngestError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "source not found")
	case errors.Is(err, domain.ErrNoMonitor):
		h.writeError(w, http.StatusNotFound, "no monitored file")
	case errors.Is(err, telemetry.ErrInvalidSource):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &ingestErr), isExtractionError(err):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		if h.logger != nil {
			h.logger.Printf(r.Context(), "http: %s %s: %v", r.Method, r.URL.Path, err)
		}
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func isExtractionError(err error) bool {
	return errors.IsAny(err,
		domain.ErrNoRecords,
		domain.ErrExtractionFailed,
		domain.ErrExtractionTimeout,
		domain.ErrMalformedOutput,
		domain.ErrWorkspace,
	)
}

func (h *handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message, Code: status})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
