package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/SymptomAI/symptom-ai/internal/analysis"
)

// SessionWriter is the slice of the session manager the replay flow needs:
// parking a stored analysis (or just the text, when no analysis exists) for
// the caller's next page load.
type SessionWriter interface {
	PutHandoff(ctx context.Context, sessionID, symptoms string, result analysis.Result) error
	PutPrefill(ctx context.Context, sessionID, symptoms string) error
}

type Handler struct {
	ledger   *Ledger
	sessions SessionWriter
}

func NewHandler(ledger *Ledger, sessions SessionWriter) *Handler {
	return &Handler{ledger: ledger, sessions: sessions}
}

type dayGroupView struct {
	Date     string  `json:"date"`
	Label    string  `json:"label"`
	Searches []Entry `json:"searches"`
}

// GetHistory returns the detailed history. The "Today" label is applied at
// the read boundary; group identity stays the concrete date so groups never
// collide across midnight.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	groups := h.ledger.Detailed(r.Context())
	today := h.ledger.Today()

	views := make([]dayGroupView, 0, len(groups))
	for _, g := range groups {
		label := g.Date
		if g.Date == today {
			label = "Today"
		}
		views = append(views, dayGroupView{Date: g.Date, Label: label, Searches: g.Searches})
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": views})
}

func (h *Handler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, map[string]any{"recent": h.ledger.Recent(r.Context(), limit)})
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Clear(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to clear history"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type replayRequest struct {
	Symptoms  string `json:"symptoms"`
	SessionID string `json:"sessionId"`
}

// Replay serves a recent-chat click: when a stored analysis exists for the
// exact text, it is parked in the caller's session handoff slot so the
// results view can pick it up without another gateway call. Otherwise only
// the text is parked and the client goes back to the input view prefilled.
func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	var req replayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request"})
		return
	}
	if req.Symptoms == "" || req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symptoms and sessionId are required"})
		return
	}

	result, found := h.ledger.FindAnalysis(r.Context(), req.Symptoms)
	if !found {
		if err := h.sessions.PutPrefill(r.Context(), req.SessionID, req.Symptoms); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to store handoff"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}

	if err := h.sessions.PutHandoff(r.Context(), req.SessionID, req.Symptoms, result); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to store handoff"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"found": true})
}

// Events streams history-change notifications over SSE. Events carry no
// payload; clients re-fetch the recent list on each one. The subscription is
// torn down when the client disconnects.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticks, cancel := h.ledger.Notifier().Subscribe()
	defer cancel()

	// Initial event so a freshly mounted view loads its list immediately.
	fmt.Fprint(w, "event: searchHistoryUpdated\ndata: {}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, open := <-ticks:
			if !open {
				return
			}
			fmt.Fprint(w, "event: searchHistoryUpdated\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/history", h.GetHistory)
	r.Get("/history/recent", h.GetRecent)
	r.Delete("/history", h.ClearHistory)
	r.Post("/history/replay", h.Replay)
	r.Get("/history/events", h.Events)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
