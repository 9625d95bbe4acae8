// Package handlers provides HTTP handlers for the safety API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/screening"
	"github.com/psychrx/go-rxguard/internal/observability/metrics"
)

// CatalogHandler handles medication search and batch screening endpoints.
type CatalogHandler struct {
	search   *catalog.Service
	screener *screening.Screener
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewCatalogHandler creates a new handler
func NewCatalogHandler(search *catalog.Service, screener *screening.Screener, m *metrics.Metrics, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{search: search, screener: screener, metrics: m, logger: logger}
}

// Routes returns the handler routes
func (h *CatalogHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/medications", h.Search)
	r.Post("/screenings", h.Screen)
	return r
}

// Search handles GET /medications?q=...&region=...
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	region, err := catalog.ParseRegion(r.URL.Query().Get("region"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := h.search.Search(ctx, r.URL.Query().Get("q"), region)
	if err != nil {
		h.logger.Error("catalog search failed", zap.Error(err))
		jsonError(w, "search failed", http.StatusInternalServerError)
		return
	}
	h.metrics.CatalogSearches.Inc()

	if results == nil {
		results = []*catalog.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// ScreenRequest is the request body for a batch safety screening.
type ScreenRequest struct {
	PatientIDs []string `json:"patient_ids"`
	Region     string   `json:"region"`
}

// Screen handles POST /screenings
func (h *CatalogHandler) Screen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ScreenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	region, err := catalog.ParseRegion(req.Region)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	screens, err := h.screener.ScreenPatients(ctx, req.PatientIDs, region)
	if err != nil {
		h.logger.Error("batch screening failed", zap.Error(err))
		jsonError(w, "screening failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"screens": screens,
		"count":   len(screens),
	})
}

func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
