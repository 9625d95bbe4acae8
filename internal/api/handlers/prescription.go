package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/psychrx/go-rxguard/internal/api/middleware"
	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/dosage"
	"github.com/psychrx/go-rxguard/internal/domain/interaction"
	"github.com/psychrx/go-rxguard/internal/domain/policy"
	"github.com/psychrx/go-rxguard/internal/domain/prescription"
	"github.com/psychrx/go-rxguard/internal/observability/metrics"
	"github.com/psychrx/go-rxguard/pkg/idempotency"
)

// EventStore persists a session's uncommitted domain events.
type EventStore interface {
	SaveEvents(ctx context.Context, sess *prescription.Session) error
}

// SessionHandler handles prescription session endpoints.
type SessionHandler struct {
	patients prescription.PatientRepository
	regions  policy.ConfigRepository
	catalog  catalog.Repository
	checker  *interaction.Checker
	sink     prescription.Sink
	events   EventStore
	inbox    *idempotency.Inbox
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*prescription.Session
}

// NewSessionHandler creates a new handler. events and inbox may be nil when
// the deployment has no event store or dedup inbox.
func NewSessionHandler(
	patients prescription.PatientRepository,
	regions policy.ConfigRepository,
	catalogRepo catalog.Repository,
	checker *interaction.Checker,
	sink prescription.Sink,
	events EventStore,
	inbox *idempotency.Inbox,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		patients: patients,
		regions:  regions,
		catalog:  catalogRepo,
		checker:  checker,
		sink:     sink,
		events:   events,
		inbox:    inbox,
		metrics:  m,
		logger:   logger,
		sessions: make(map[string]*prescription.Session),
	}
}

// Routes returns the handler routes
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Start)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/lines", h.AddLine)
	r.Patch("/{id}/lines/{lineID}", h.EditLine)
	r.Delete("/{id}/lines/{lineID}", h.RemoveLine)
	r.Patch("/{id}", h.EditSession)
	r.Post("/{id}/validate", h.Validate)
	r.Post("/{id}/submit", h.Submit)
	return r
}

// StartRequest is the request body for starting a session.
type StartRequest struct {
	PatientID string `json:"patient_id"`
	Region    string `json:"region"`
}

// Start handles POST /sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("session-handler")
	ctx, span := tracer.Start(ctx, "start_session")
	defer span.End()

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	region, err := catalog.ParseRegion(req.Region)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	pol, err := policy.ForRegion(ctx, h.regions, region)
	if err != nil {
		h.logger.Error("region config load failed", zap.Error(err))
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	patient, err := h.patients.Get(ctx, req.PatientID)
	if err != nil {
		jsonError(w, "patient not found", http.StatusNotFound)
		return
	}

	sessionID := uuid.New().String()
	span.SetAttributes(attribute.String("session_id", sessionID))

	sess, err := prescription.NewSession(sessionID, patient, pol, h.checker)
	if err != nil {
		h.logger.Error("session create failed", zap.Error(err))
		jsonError(w, "failed to start session", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	h.sessions[sessionID] = sess
	h.mu.Unlock()

	h.saveEvents(ctx, sess)
	h.metrics.SessionsStarted.Inc()
	h.metrics.ActiveSessions.Inc()

	h.logger.Info("session started",
		zap.String("session_id", sessionID),
		zap.String("patient_id", patient.ID),
		zap.String("region", string(region)),
		zap.String("request_id", middleware.GetRequestID(ctx)),
	)

	writeJSON(w, http.StatusCreated, h.sessionView(sess))
}

// Get handles GET /sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(chi.URLParam(r, "id"))
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionView(sess))
}

// AddLine handles POST /sessions/{id}/lines
func (h *SessionHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(chi.URLParam(r, "id"))
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	line, err := sess.AddLine()
	if err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	h.saveEvents(r.Context(), sess)
	writeJSON(w, http.StatusCreated, line)
}

// EditLineRequest carries partial line edits. Pointer fields distinguish
// "not sent" from zero values.
type EditLineRequest struct {
	MedicationName *string `json:"medication_name,omitempty"`
	Dosage         *string `json:"dosage,omitempty"`
	Strength       *string `json:"strength,omitempty"`
	Frequency      *string `json:"frequency,omitempty"`
	Route          *string `json:"route,omitempty"`
	DurationDays   *int    `json:"duration_days,omitempty"`
	Quantity       *int    `json:"quantity,omitempty"`
	Refills        *int    `json:"refills,omitempty"`
	Sig            *string `json:"sig,omitempty"`
}

// EditLine handles PATCH /sessions/{id}/lines/{lineID}
func (h *SessionHandler) EditLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.session(chi.URLParam(r, "id"))
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	lineID := chi.URLParam(r, "lineID")

	var req EditLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.applyLineEdits(ctx, sess, lineID, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.saveEvents(ctx, sess)
	writeJSON(w, http.StatusOK, h.sessionView(sess))
}

func (h *SessionHandler) applyLineEdits(ctx context.Context, sess *prescription.Session, lineID string, req *EditLineRequest) error {
	if req.MedicationName != nil {
		med, err := h.resolveMedication(ctx, *req.MedicationName, sess.Region())
		if err != nil {
			return err
		}
		if err := sess.SelectMedication(ctx, lineID, med); err != nil {
			return err
		}
	}
	if req.Dosage != nil {
		if err := sess.SetDosage(lineID, *req.Dosage); err != nil {
			return err
		}
	}
	if req.Strength != nil {
		if err := sess.SetStrength(lineID, *req.Strength); err != nil {
			return err
		}
	}
	if req.Frequency != nil {
		if err := sess.SetFrequency(lineID, dosage.Frequency(*req.Frequency)); err != nil {
			return err
		}
	}
	if req.Route != nil {
		if err := sess.SetRoute(lineID, *req.Route); err != nil {
			return err
		}
	}
	if req.DurationDays != nil {
		if err := sess.SetDuration(lineID, *req.DurationDays); err != nil {
			return err
		}
	}
	if req.Quantity != nil {
		if err := sess.SetQuantity(lineID, *req.Quantity); err != nil {
			return err
		}
	}
	if req.Refills != nil {
		if err := sess.SetRefills(lineID, *req.Refills); err != nil {
			return err
		}
	}
	if req.Sig != nil {
		if err := sess.SetSig(lineID, *req.Sig); err != nil {
			return err
		}
	}
	return nil
}

// resolveMedication finds the catalog entry matching a selected name.
func (h *SessionHandler) resolveMedication(ctx context.Context, name string, region catalog.Region) (*catalog.Medication, error) {
	meds, err := h.catalog.Find(ctx, name, region)
	if err != nil {
		return nil, err
	}
	for _, m := range meds {
		if strings.EqualFold(m.Name, name) || m.ID == name {
			return m, nil
		}
	}
	if len(meds) == 1 {
		return meds[0], nil
	}
	return nil, &notFoundError{name: name}
}

type notFoundError struct{ name string }

func (e *notFoundError) Error() string { return "medication not found: " + e.name }

// RemoveLine handles DELETE /sessions/{id}/lines/{lineID}
func (h *SessionHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.session(chi.URLParam(r, "id"))
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	if err := sess.RemoveLine(ctx, chi.URLParam(r, "lineID")); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.saveEvents(ctx, sess)
	writeJSON(w, http.StatusOK, h.sessionView(sess))
}

// EditSessionRequest carries session-level edits.
type EditSessionRequest struct {
	Diagnosis   *string           `json:"diagnosis,omitempty"`
	PharmacyID  *string           `json:"pharmacy_id,omitempty"`
	Identifiers map[string]string `json:"identifiers,omitempty"`
}

// EditSession handles PATCH /sessions/{id}
func (h *SessionHandler) EditSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(chi.URLParam(r, "id"))
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	var req EditSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Diagnosis != nil {
		if err := sess.SetDiagnosis(*req.Diagnosis); err != nil {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
	}
	if req.PharmacyID != nil {
		if err := sess.SetPharmacy(*req.PharmacyID); err != nil {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
	}
	for field, value := range req.Identifiers {
		if err := sess.SetIdentifier(policy.IdentifierField(field), value); err != nil {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.sessionView(sess))
}

// Validate handles POST /sessions/{id}/validate
func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.session(chi.URLParam(r, "id"))
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	start := time.Now()
	result, err := sess.Validate(ctx)
	if err != nil {
		h.logger.Error("validation failed", zap.Error(err), zap.String("session_id", sess.ID()))
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.observeValidation(sess, result, time.Since(start))
	h.saveEvents(ctx, sess)

	writeJSON(w, http.StatusOK, result)
}

// Submit handles POST /sessions/{id}/submit
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("session-handler")
	ctx, span := tracer.Start(ctx, "submit_prescription")
	defer span.End()

	sess, ok := h.session(chi.URLParam(r, "id"))
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	span.SetAttributes(attribute.String("session_id", sess.ID()))

	if h.inbox != nil {
		key := idempotency.GenerateKey(sess.ID(), sess.Patient().ID, sess.Version())
		result, err := h.inbox.Process(ctx, key, "submit_prescription", nil, func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
			rx, err := h.submit(ctx, sess)
			if err != nil {
				return nil, err
			}
			return json.Marshal(rx)
		})
		if err != nil {
			h.writeSubmitError(w, sess, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write(result.Result)
		return
	}

	rx, err := h.submit(ctx, sess)
	if err != nil {
		h.writeSubmitError(w, sess, err)
		return
	}
	writeJSON(w, http.StatusCreated, rx)
}

// submit runs the validate-snapshot-store pipeline for a session.
func (h *SessionHandler) submit(ctx context.Context, sess *prescription.Session) (*prescription.Prescription, error) {
	start := time.Now()
	rx, err := sess.Submit(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.sink.Store(ctx, rx); err != nil {
		return nil, err
	}
	h.saveEvents(ctx, sess)

	h.metrics.PrescriptionsSubmitted.Inc()
	h.metrics.ValidationDuration.Observe(time.Since(start).Seconds())
	h.metrics.ActiveSessions.Dec()

	h.logger.Info("prescription submitted",
		zap.String("prescription_id", rx.ID),
		zap.String("session_id", sess.ID()),
		zap.Int("lines", len(rx.Lines)),
		zap.Int("warnings", len(rx.Warnings)),
	)
	return rx, nil
}

func (h *SessionHandler) writeSubmitError(w http.ResponseWriter, sess *prescription.Session, err error) {
	var verr *prescription.ValidationError
	if ok := asValidationError(err, &verr); ok {
		h.metrics.ValidationsBlocked.Inc()
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "prescription blocked",
			"reasons": verr.Reasons,
		})
		return
	}
	h.logger.Error("submission failed", zap.Error(err), zap.String("session_id", sess.ID()))
	jsonError(w, err.Error(), http.StatusInternalServerError)
}

func (h *SessionHandler) observeValidation(sess *prescription.Session, result *prescription.ValidationResult, elapsed time.Duration) {
	h.metrics.InteractionChecks.Inc()
	h.metrics.ValidationDuration.Observe(elapsed.Seconds())
	if result.Blocked() {
		h.metrics.ValidationsBlocked.Inc()
	}
	if interaction.HasContraindicated(result.Interactions) {
		h.metrics.ContraindicatedHits.Inc()
	}
	if n := len(result.AllergyWarnings); n > 0 {
		h.metrics.AllergyWarnings.Add(float64(n))
	}
}

func (h *SessionHandler) session(id string) (*prescription.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[id]
	return sess, ok
}

func (h *SessionHandler) saveEvents(ctx context.Context, sess *prescription.Session) {
	if h.events == nil {
		sess.ClearChanges()
		return
	}
	if err := h.events.SaveEvents(ctx, sess); err != nil {
		h.logger.Error("event save failed", zap.Error(err), zap.String("session_id", sess.ID()))
	}
}

func (h *SessionHandler) sessionView(sess *prescription.Session) map[string]interface{} {
	return map[string]interface{}{
		"id":               sess.ID(),
		"status":           sess.Status(),
		"region":           sess.Region(),
		"patient_id":       sess.Patient().ID,
		"lines":            sess.Lines(),
		"interactions":     sess.Interactions(),
		"allergy_warnings": sess.AllergyWarnings(),
	}
}

func asValidationError(err error, target **prescription.ValidationError) bool {
	for err != nil {
		if verr, ok := err.(*prescription.ValidationError); ok {
			*target = verr
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
