package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	core "statsvc/ingestion/service/core"
	"statsvc/internal/models"
	"statsvc/processing"
)

// Client-facing messages
const (
	MsgIngestAccepted     = "Request submitted successfully. Please use request id to fetch stats"
	MsgInvalidRequestID   = "400: Bad Request: Request ID not valid. Value should be of UUID type"
	MsgRequestIDNotFound  = "Request ID not found"
	MsgStoreFailed        = "Failed to store record"
	MsgFetchFailed        = "Failed to fetch record"
	MsgInvalidJSON        = "Bad Request: Invalid JSON format"
	MsgInvalidContentType = "Content-Type must be application/json"
	MsgBodyTooLarge       = "Request body too large"
)

// DefaultMaxBodyBytes caps ingest request bodies
const DefaultMaxBodyBytes int64 = 10 * 1024 * 1024

// IngestResponse is returned after a record is stored
type IngestResponse struct {
	RequestID string `json:"request_id"`
	Message   string `json:"message"`
}

// StatsResponse is returned for a stored record
type StatsResponse struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// StatsHandler encapsulates the logic for handling HTTP ingest and lookup requests
type StatsHandler struct {
	svc          *core.Service
	logger       *log.Logger
	maxBodyBytes int64
}

// NewStatsHandler creates a new StatsHandler; maxBodyBytes <= 0 means the default
func NewStatsHandler(s *core.Service, l *log.Logger, maxBodyBytes int64) *StatsHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &StatsHandler{svc: s, logger: l, maxBodyBytes: maxBodyBytes}
}

// Ingest handles POST /ingest/ requests
func (h *StatsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	// Content-Type validation; a missing header is read as JSON
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err != nil || mediaType != "application/json" {
			h.respondError(w, MsgInvalidContentType, http.StatusBadRequest)
			return
		}
	}

	// Request size limit
	if r.ContentLength > h.maxBodyBytes {
		h.respondError(w, MsgBodyTooLarge, http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	defer r.Body.Close()

	// 1. Parse request body JSON
	var payload models.RawPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, MsgBodyTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Printf("HTTP Handler: Failed to parse JSON request: %v", err)
		h.respondError(w, MsgInvalidJSON, http.StatusBadRequest)
		return
	}

	// 2. Call Service layer processing logic
	result, err := h.svc.Ingest(r.Context(), &payload)
	if err != nil {
		var verr *processing.ValidationError
		switch {
		case errors.As(err, &verr):
			h.respondError(w, verr.Message, http.StatusBadRequest)
		case errors.Is(err, processing.ErrNonFiniteResult):
			h.respondError(w, processing.MsgStatsOutOfRange, http.StatusBadRequest)
		case errors.Is(err, core.ErrStorage):
			h.respondError(w, MsgStoreFailed, http.StatusInternalServerError)
		default:
			h.logger.Printf("HTTP Handler: Service layer processing failed: %v", err)
			h.respondError(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.respondJSON(w, IngestResponse{
		RequestID: result.RequestID.String(),
		Message:   MsgIngestAccepted,
	}, http.StatusOK)
}

// GetStats handles GET /get_stats/{request_id} requests
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetStats(r.Context(), chi.URLParam(r, "request_id"))
	if err != nil {
		switch {
		case errors.Is(err, core.ErrMalformedRequestID):
			h.respondError(w, MsgInvalidRequestID, http.StatusBadRequest)
		case errors.Is(err, core.ErrRequestNotFound):
			h.respondError(w, MsgRequestIDNotFound, http.StatusNotFound)
		default:
			h.respondError(w, MsgFetchFailed, http.StatusInternalServerError)
		}
		return
	}

	h.respondJSON(w, StatsResponse{Mean: rec.Mean, StdDev: rec.StdDev}, http.StatusOK)
}

// HealthCheck handles GET /health requests
func (h *StatsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if err := h.svc.Health(r.Context()); err != nil {
		h.logger.Printf("HTTP Handler: Health check failed: %v", err)
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	resp := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339Nano),
		"service":   "statsvc",
	}
	h.respondJSON(w, resp, code)
}

// Metrics handles GET /metrics requests (basic counters)
func (h *StatsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"timestamp": time.Now().Unix(),
		"service":   "statsvc",
		"counters":  h.svc.Metrics(),
	}
	h.respondJSON(w, resp, http.StatusOK)
}

// respondJSON sends JSON response; the body is encoded before the status
// line so an encoding failure still reaches the client as a 500
func (h *StatsHandler) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		h.logger.Printf("HTTP Handler: Failed to encode JSON response: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "{\"detail\":%q,\"status\":%d}\n", http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Printf("HTTP Handler: Failed to write response: %v", err)
	}
}

// respondError sends error response
func (h *StatsHandler) respondError(w http.ResponseWriter, message string, statusCode int) {
	errorResp := map[string]interface{}{
		"detail": message,
		"status": statusCode,
	}

	h.respondJSON(w, errorResp, statusCode)
}
