package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Recorder persists a completed search into the durable history. The ledger
// implements it; the indirection keeps this package free of a history import.
type Recorder interface {
	RecordSearch(ctx context.Context, symptoms string, result Result) error
}

// HandoffWriter parks the analysis for the caller's next page load.
type HandoffWriter interface {
	PutHandoff(ctx context.Context, sessionID, symptoms string, result Result) error
}

type Handler struct {
	gateway  *Gateway
	recorder Recorder
	sessions HandoffWriter
	log      *zap.Logger
}

func NewHandler(gateway *Gateway, recorder Recorder, sessions HandoffWriter, log *zap.Logger) *Handler {
	return &Handler{gateway: gateway, recorder: recorder, sessions: sessions, log: log}
}

type analyzeRequest struct {
	Symptoms  string `json:"symptoms"`
	APIKey    string `json:"apiKey"`
	SessionID string `json:"sessionId"`
}

// Analyze runs the gateway for the submitted symptoms. Empty input is the
// only 400; provider failure is masked by the fallback, so this endpoint
// never answers 5xx for a downstream outage. The search is recorded and the
// handoff parked before the response goes out, so a client that navigates on
// receipt always finds fresh history on the next view.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request"})
		return
	}

	if strings.TrimSpace(req.Symptoms) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Symptoms are required"})
		return
	}

	result, err := h.gateway.Analyze(r.Context(), req.Symptoms, req.APIKey)
	if err != nil {
		if errors.Is(err, ErrEmptySymptoms) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Symptoms are required"})
			return
		}
		// Context cancellation: the caller is gone, record nothing.
		h.log.Debug("analysis abandoned", zap.Error(err))
		return
	}

	if err := h.recorder.RecordSearch(r.Context(), req.Symptoms, result); err != nil {
		// The analysis itself succeeded; a history write failure costs the
		// sidebar an entry, not the user their result.
		h.log.Warn("failed to record search", zap.Error(err))
	}

	if req.SessionID != "" {
		if err := h.sessions.PutHandoff(r.Context(), req.SessionID, strings.TrimSpace(req.Symptoms), result); err != nil {
			h.log.Warn("failed to store handoff", zap.String("session", req.SessionID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"analysis": result})
}

type testKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// TestAPIKey validates a candidate key. Validation failure is communicated in
// the body; the status is always 200.
func (h *Handler) TestAPIKey(w http.ResponseWriter, r *http.Request) {
	var req testKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, KeyStatus{Valid: false, Error: "Invalid request"})
		return
	}
	writeJSON(w, http.StatusOK, h.gateway.VerifyKey(r.Context(), req.APIKey))
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/analyze-symptoms", h.Analyze)
	r.Post("/test-api-key", h.TestAPIKey)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
