package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/ValentinKolb/dMerge/lib/logger"
	"github.com/ValentinKolb/dMerge/lib/pipeline"
)

// maxBodySize caps the accepted request body of POST /data-a.
const maxBodySize = 8 << 20

// Server is the HTTP boundary of the service. It is a thin caller of the
// pipeline's save/merge operations; all business rules live in the pipeline.
type Server struct {
	endpoint string
	service  *pipeline.Service
	log      *slog.Logger
	httpSrv  *http.Server
}

// NewServer creates the HTTP server for the given listen endpoint.
func NewServer(endpoint string, service *pipeline.Service) *Server {
	s := &Server{
		endpoint: endpoint,
		service:  service,
		log:      logger.Get("api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /data-a", s.loggerMiddleware(s.handlePostDataA))
	mux.HandleFunc("GET /data-c", s.loggerMiddleware(s.handleGetDataC))
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.httpSrv = &http.Server{
		Addr:              endpoint,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// ListenAndServe starts serving and blocks until Shutdown is called or the
// listener fails.
func (s *Server) ListenAndServe() error {
	s.log.Info("starting HTTP server", "endpoint", s.endpoint)
	if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting new requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

// handlePostDataA validates and stores a new Data A document, then triggers
// an immediate recompute of Data C against the currently cached Data B.
func (s *Server) handlePostDataA(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	defer func() { _ = r.Body.Close() }()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req DataARequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The stored document keeps the submitted top-level keys as is, so the
	// merge operates on exactly what the client sent.
	doc, err := pipeline.DecodeDocument(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "request body is not a JSON object")
		return
	}

	if err := s.service.SaveDataA(r.Context(), doc); err != nil {
		s.internalError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleGetDataC serves the current merged document.
func (s *Server) handleGetDataC(w http.ResponseWriter, r *http.Request) {
	value, loaded, err := s.service.DataC()
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if !loaded {
		s.writeJSON(w, http.StatusNotFound, NotFoundResponse{Detail: "DATA C not available"})
		return
	}

	// The stored value is already canonical JSON text.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(value); err != nil {
		s.log.Error("failed to write response", "err", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleMetrics exposes all process metrics in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	metrics.WritePrometheus(w, true)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("failed to write response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Message: message})
}

// internalError logs the real failure and answers with a generic message.
// No internal error text crosses the HTTP boundary.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("unhandled error", "path", r.URL.Path, "err", err)
	s.writeError(w, http.StatusInternalServerError, "Unexpected server error, please contact support.")
}

// --------------------------------------------------------------------------
// Middleware (logging, metrics)
// --------------------------------------------------------------------------

// responseWriter is a custom ResponseWriter that captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware logs every request at debug level and counts it by route
// and status.
func (s *Server) loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create custom response writer to capture the status code
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		metrics.GetOrCreateCounter(
			`dmerge_http_requests_total{path="` + r.URL.Path + `",status="` + strconv.Itoa(rw.statusCode) + `"}`,
		).Inc()
		s.log.Debug("request handled", "method", r.Method, "path", r.URL.Path, "status", rw.statusCode, "took", duration)
	}
}
