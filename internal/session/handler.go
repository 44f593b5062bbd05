package session

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SymptomAI/symptom-ai/internal/analysis"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

type putHandoffRequest struct {
	Symptoms string          `json:"symptoms"`
	Analysis analysis.Result `json:"analysis"`
}

func (h *Handler) PutHandoff(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req putHandoffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request"})
		return
	}
	if req.Symptoms == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symptoms are required"})
		return
	}

	if err := h.manager.PutHandoff(r.Context(), sessionID, req.Symptoms, req.Analysis); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to store handoff"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConsumeHandoff hands the pending analysis to the results view and clears
// the slot. 404 is the "nothing pending" signal the client turns into a
// redirect to the input view.
func (h *Handler) ConsumeHandoff(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	handoff, ok := h.manager.Consume(r.Context(), sessionID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no pending analysis"})
		return
	}
	writeJSON(w, http.StatusOK, handoff)
}

func (h *Handler) ConsumePrefill(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	symptoms, ok := h.manager.ConsumePrefill(r.Context(), sessionID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no prefill text"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"symptoms": symptoms})
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	h.manager.End(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Put("/session/{sessionID}/handoff", h.PutHandoff)
	r.Post("/session/{sessionID}/handoff/consume", h.ConsumeHandoff)
	r.Post("/session/{sessionID}/prefill/consume", h.ConsumePrefill)
	r.Delete("/session/{sessionID}", h.EndSession)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
