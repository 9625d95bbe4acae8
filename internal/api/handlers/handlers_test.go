package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/interaction"
	"github.com/psychrx/go-rxguard/internal/domain/screening"
	"github.com/psychrx/go-rxguard/internal/infrastructure/memory"
	"github.com/psychrx/go-rxguard/internal/observability/metrics"
)

// Metrics register against the process-global registry, so build them once.
var testMetrics = metrics.New()

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := zap.NewNop()

	medRepo := memory.NewMedicationStore(memory.SeedMedications())
	interRepo := memory.NewInteractionStore(memory.SeedInteractions())
	patientRepo := memory.NewPatientStore(memory.SeedPatients())
	regionRepo := memory.NewRegionConfigStore(memory.DefaultRegionConfigs())
	rxStore := memory.NewPrescriptionStore()

	checker := interaction.NewChecker(interRepo)
	search := catalog.NewService(medRepo)
	screener := screening.NewScreener(patientRepo, checker, 2, logger)

	r := chi.NewRouter()
	r.Mount("/catalog", NewCatalogHandler(search, screener, testMetrics, logger).Routes())
	r.Mount("/sessions", NewSessionHandler(
		patientRepo, regionRepo, medRepo, checker, rxStore, rxStore, nil, testMetrics, logger).Routes())
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		// Array responses are decoded by the caller.
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func TestCatalogSearchEndpoint(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/medications?q=sertraline&region=us", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var results []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	// Short terms return an empty list, not an error.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/medications?q=s&region=us", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for short term, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("expected empty array, got %q", body)
	}

	// Unknown regions are rejected up front.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/catalog/medications?q=sertraline&region=jp", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown region, got %d", rec.Code)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	rec, session := doJSON(t, r, "POST", "/sessions", map[string]string{
		"patient_id": "pat-001",
		"region":     "us",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start session: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	sessionID, _ := session["id"].(string)
	if sessionID == "" {
		t.Fatalf("missing session id in %v", session)
	}

	rec, line := doJSON(t, r, "POST", fmt.Sprintf("/sessions/%s/lines", sessionID), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add line: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	lineID, _ := line["id"].(string)
	if lineID == "" {
		t.Fatalf("missing line id in %v", line)
	}

	duration := 30
	rec, _ = doJSON(t, r, "PATCH", fmt.Sprintf("/sessions/%s/lines/%s", sessionID, lineID), EditLineRequest{
		MedicationName: strPtr("Sertraline"),
		Frequency:      strPtr("once_daily"),
		DurationDays:   &duration,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit line: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, _ = doJSON(t, r, "PATCH", "/sessions/"+sessionID, EditSessionRequest{
		Diagnosis: strPtr("Major depressive disorder"),
		Identifiers: map[string]string{
			"dea": "AB1234567",
			"npi": "1234567890",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit session: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, verdict := doJSON(t, r, "POST", fmt.Sprintf("/sessions/%s/validate", sessionID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if status, _ := verdict["status"].(string); status != "ready" {
		t.Fatalf("expected ready verdict, got %v", verdict)
	}

	rec, rx := doJSON(t, r, "POST", fmt.Sprintf("/sessions/%s/submit", sessionID), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rx["id"] == "" || rx["patient_id"] != "pat-001" {
		t.Errorf("unexpected prescription: %v", rx)
	}
}

func TestSubmitBlockedSessionOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	rec, session := doJSON(t, r, "POST", "/sessions", map[string]string{
		"patient_id": "pat-001",
		"region":     "us",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start session: expected 201, got %d", rec.Code)
	}
	sessionID := session["id"].(string)

	// An empty session is blocked by missing diagnosis and identifiers.
	rec, body := doJSON(t, r, "POST", fmt.Sprintf("/sessions/%s/submit", sessionID), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	reasons, _ := body["reasons"].([]interface{})
	if len(reasons) == 0 {
		t.Errorf("expected itemized reasons, got %v", body)
	}
}

func TestBatchScreeningEndpoint(t *testing.T) {
	r := newTestRouter(t)

	rec, body := doJSON(t, r, "POST", "/catalog/screenings", map[string]interface{}{
		"patient_ids": []string{"pat-001", "pat-002"},
		"region":      "us",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if count, _ := body["count"].(float64); count != 2 {
		t.Errorf("expected 2 screens, got %v", body["count"])
	}
}

func strPtr(s string) *string { return &s }
