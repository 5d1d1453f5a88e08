// Package server exposes the inference service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chriscorrea/spamsift/internal/config"
	"github.com/chriscorrea/spamsift/internal/inference"
	"github.com/chriscorrea/spamsift/internal/logging"
	"github.com/chriscorrea/spamsift/internal/model"
)

const (
	pathClassify      = "/v1/classify"
	pathClassifyBatch = "/v1/classify/batch"
	pathHealth        = "/healthz"
	pathMetrics       = "/metrics"
)

// MaxBatchSize bounds the number of texts in one batch request.
const MaxBatchSize = 1000

// Classifier is the part of the inference service the handlers use.
type Classifier interface {
	Classify(ctx context.Context, text string) (*inference.Result, error)
	ClassifyAll(ctx context.Context, texts []string) ([]*inference.Result, error)
}

// BundleStatus reports the loaded bundle without triggering a load.
type BundleStatus interface {
	Loaded() (*model.Bundle, bool)
}

// Server routes HTTP requests to a Classifier.
type Server struct {
	classifier   Classifier
	status       BundleStatus
	metrics      *Metrics
	maxBodyBytes int64
	logger       *slog.Logger
}

// New creates a Server. maxBodyBytes limits request bodies.
func New(classifier Classifier, status BundleStatus, metrics *Metrics, maxBodyBytes int64) *Server {
	return &Server{
		classifier:   classifier,
		status:       status,
		metrics:      metrics,
		maxBodyBytes: maxBodyBytes,
		logger:       slog.Default().With("component", "server"),
	}
}

// Handler returns the routed handler with request-id and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+pathClassify, s.Classify)
	mux.HandleFunc("POST "+pathClassifyBatch, s.ClassifyBatch)
	mux.HandleFunc("GET "+pathHealth, s.Health)
	mux.Handle("GET "+pathMetrics, s.metrics.Handler())

	var chain http.Handler = mux
	chain = instrument(s.metrics)(chain)
	chain = requestID(chain)
	return chain
}

type classifyRequest struct {
	Text *string `json:"text"`
}

type batchRequest struct {
	Texts []string `json:"texts"`
}

type batchResponse struct {
	Results []*inference.Result `json:"results"`
}

type healthResponse struct {
	Status   string `json:"status"`
	BundleID string `json:"bundle_id,omitempty"`
}

// Classify handles POST /v1/classify.
func (s *Server) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Text == nil {
		s.writeError(w, http.StatusBadRequest, "field 'text' is required")
		return
	}

	result, err := s.classifier.Classify(r.Context(), *req.Text)
	if err != nil {
		s.classifyError(w, r, err)
		return
	}

	s.observe(result)
	s.writeJSON(w, http.StatusOK, result)
}

// ClassifyBatch handles POST /v1/classify/batch.
func (s *Server) ClassifyBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Texts) == 0 {
		s.writeError(w, http.StatusBadRequest, "field 'texts' must contain at least one text")
		return
	}
	if len(req.Texts) > MaxBatchSize {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d texts per batch", MaxBatchSize))
		return
	}

	results, err := s.classifier.ClassifyAll(r.Context(), req.Texts)
	if err != nil {
		s.classifyError(w, r, err)
		return
	}

	for _, result := range results {
		s.observe(result)
	}
	s.writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

// Health handles GET /healthz: ready once the bundle is loaded.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	bundle, ok := s.status.Loaded()
	if !ok {
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", BundleID: bundle.ID})
}

// decode reads a size-limited JSON body; it writes the error response itself.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// classifyError maps service errors to status codes.
func (s *Server) classifyError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	var validationErr *inference.ValidationError
	switch {
	case errors.As(err, &validationErr):
		s.metrics.ClassifyErrorsTotal.WithLabelValues("validation").Inc()
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrModelLoad):
		s.metrics.ClassifyErrorsTotal.WithLabelValues("model").Inc()
		log.Error("model unavailable", "error", err)
		s.writeError(w, http.StatusInternalServerError, "model unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.metrics.ClassifyErrorsTotal.WithLabelValues("canceled").Inc()
		s.writeError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		s.metrics.ClassifyErrorsTotal.WithLabelValues("internal").Inc()
		log.Error("classification failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "classification failed")
	}
}

func (s *Server) observe(result *inference.Result) {
	s.metrics.ClassificationsTotal.WithLabelValues(result.Label.String()).Inc()
	s.metrics.ConfidenceScore.Observe(result.Confidence)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// ListenAndServe serves h until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, h http.Handler, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("spamsift listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("spamsift stopped")
	return nil
}
