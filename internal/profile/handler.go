// Package profile persists the user profile and app settings documents. Both
// are opaque JSON blobs owned by the client; the server only guards that what
// goes in is valid JSON and hands back an empty object when nothing is stored.
package profile

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SymptomAI/symptom-ai/internal/kvstore"
)

const maxDocumentSize = 64 << 10

type Handler struct {
	store kvstore.Store
}

func NewHandler(store kvstore.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) getDocument(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := h.store.Get(r.Context(), key)
		if !ok || !json.Valid([]byte(raw)) {
			raw = "{}"
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, raw)
	}
}

func (h *Handler) putDocument(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize))
		if err != nil || !json.Valid(body) {
			writeError(w, http.StatusBadRequest, "Body must be valid JSON")
			return
		}
		if err := h.store.Set(r.Context(), key, string(body)); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/profile", h.getDocument(kvstore.KeyUserProfile))
	r.Put("/profile", h.putDocument(kvstore.KeyUserProfile))
	r.Get("/settings", h.getDocument(kvstore.KeyAppSettings))
	r.Put("/settings", h.putDocument(kvstore.KeyAppSettings))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
