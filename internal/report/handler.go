package report

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SymptomAI/symptom-ai/internal/analysis"
)

// AnalysisFinder looks up the stored analysis for an exact symptom text.
type AnalysisFinder interface {
	FindAnalysis(ctx context.Context, symptoms string) (analysis.Result, bool)
}

type Handler struct {
	svc    *Service
	ledger AnalysisFinder
	log    *zap.Logger
}

func NewHandler(svc *Service, ledger AnalysisFinder, log *zap.Logger) *Handler {
	return &Handler{svc: svc, ledger: ledger, log: log}
}

type reportRequest struct {
	Symptoms string `json:"symptoms"`
}

// CreateReport renders the PDF for a previously recorded search.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symptoms == "" {
		writeError(w, http.StatusBadRequest, "symptoms are required")
		return
	}

	result, found := h.ledger.FindAnalysis(r.Context(), req.Symptoms)
	if !found {
		writeError(w, http.StatusNotFound, "no analysis recorded for these symptoms")
		return
	}

	data, err := h.svc.Render(req.Symptoms, result)
	if err != nil {
		h.log.Error("report render failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="symptom-analysis.pdf"`)
	w.Write(data)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/report", h.CreateReport)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
