package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	journeystitching "journeystitch/contexts/journey-analytics/journey-stitching"
	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
	journeyhttp "journeystitch/contexts/journey-analytics/journey-stitching/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "journeystitch/internal/platform/httpserver/docs"
)

const maxEventBodyBytes = 1 << 20

// Metrics is the slice of platform telemetry the server reports into.
type Metrics interface {
	Handler() http.Handler
	ObserveHTTPRequest(method string, route string, status int, d time.Duration)
}

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	journeys journeystitching.Module
	metrics  Metrics
}

func New(
	journeys journeystitching.Module,
	metrics Metrics,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		journeys: journeys,
		metrics:  metrics,
	}
	s.registerRoutes()
	return s
}

// NewOps serves only /healthz and /metrics, for processes without the API.
func NewOps(metrics Metrics, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}
	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		metrics: metrics,
	}
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics.Handler())
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s
}

// Handler exposes the routed mux, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting",
			"event", "http_server_starting",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"addr", s.addr,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.handle("POST /v1/events", s.handlePublishEvent)
	s.handle("POST /v1/stitch", s.handleStitchEvent)
	s.handle("GET /v1/journeys/{journey_id}", s.handleGetJourney)
	s.handle("GET /v1/correlation-keys/{ck}", s.handleLookupCorrelationKey)
	s.handle("GET /v1/events/{day}/{event_id}", s.handleGetArchivedEvent)
}

func (s *Server) handle(pattern string, handler http.HandlerFunc) {
	if s.metrics == nil {
		s.mux.HandleFunc(pattern, handler)
		return
	}
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler(recorder, r)
		s.metrics.ObserveHTTPRequest(r.Method, r.Pattern, recorder.status, time.Since(started))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePublishEvent(w http.ResponseWriter, r *http.Request) {
	body, ok := readEventBody(w, r)
	if !ok {
		return
	}
	resp, err := s.journeys.Handler.PublishEventHandler(r.Context(), body)
	if err != nil {
		s.writeJourneyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleStitchEvent(w http.ResponseWriter, r *http.Request) {
	body, ok := readEventBody(w, r)
	if !ok {
		return
	}
	resp, err := s.journeys.Handler.StitchEventHandler(r.Context(), body)
	if err != nil {
		s.writeJourneyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetJourney(w http.ResponseWriter, r *http.Request) {
	follow := true
	if raw := r.URL.Query().Get("follow_redirects"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeJourneyError(w, http.StatusBadRequest, "invalid_query", "follow_redirects must be a boolean")
			return
		}
		follow = parsed
	}
	resp, err := s.journeys.Handler.GetJourneyHandler(r.Context(), r.PathValue("journey_id"), follow)
	if err != nil {
		s.writeJourneyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLookupCorrelationKey(w http.ResponseWriter, r *http.Request) {
	resp, err := s.journeys.Handler.LookupCorrelationKeyHandler(r.Context(), r.PathValue("ck"))
	if err != nil {
		s.writeJourneyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetArchivedEvent(w http.ResponseWriter, r *http.Request) {
	resp, err := s.journeys.Handler.GetArchivedEventHandler(
		r.Context(),
		r.PathValue("day"),
		r.PathValue("event_id"),
	)
	if err != nil {
		s.writeJourneyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func readEventBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJourneyError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds 1 MiB")
			return nil, false
		}
		writeJourneyError(w, http.StatusBadRequest, "invalid_body", "request body could not be read")
		return nil, false
	}
	return body, true
}

func (s *Server) writeJourneyDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *domainerrors.ValidationError
	switch {
	case errors.As(err, &validation):
		fields := make([]journeyhttp.FieldErrorDTO, 0, len(validation.Fields))
		for _, field := range validation.Fields {
			fields = append(fields, journeyhttp.FieldErrorDTO{Field: field.Field, Message: field.Message})
		}
		writeJSON(w, http.StatusBadRequest, journeyhttp.ErrorResponse{
			Code:    "invalid_event",
			Message: err.Error(),
			Fields:  fields,
		})
	case errors.Is(err, domainerrors.ErrInvalidEvent):
		writeJourneyError(w, http.StatusBadRequest, "invalid_event", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidQuery):
		writeJourneyError(w, http.StatusBadRequest, "invalid_query", err.Error())
	case errors.Is(err, domainerrors.ErrJourneyNotFound):
		writeJourneyError(w, http.StatusNotFound, "journey_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrCorrelationKeyNotFound):
		writeJourneyError(w, http.StatusNotFound, "correlation_key_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrEventNotFound):
		writeJourneyError(w, http.StatusNotFound, "event_not_found", err.Error())
	case domainerrors.IsConsistencyViolation(err):
		writeJourneyError(w, http.StatusConflict, "redirect_inconsistent", err.Error())
	case errors.Is(err, domainerrors.ErrClaimUnresolved):
		writeJourneyError(w, http.StatusServiceUnavailable, "claim_unresolved", err.Error())
	case errors.Is(err, ports.ErrNoConsumerGroup):
		writeJourneyError(w, http.StatusServiceUnavailable, "consumer_unavailable", err.Error())
	default:
		s.logger.Error("journey request failed",
			"event", "http_journey_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeJourneyError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJourneyError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, journeyhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
