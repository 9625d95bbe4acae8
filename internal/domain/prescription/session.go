package prescription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/psychrx/go-rxguard/internal/domain/allergy"
	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/dosage"
	"github.com/psychrx/go-rxguard/internal/domain/interaction"
	"github.com/psychrx/go-rxguard/internal/domain/policy"
)

// Status represents the session state
type Status string

const (
	StatusDraft      Status = "draft"
	StatusValidating Status = "validating"
	StatusBlocked    Status = "blocked"
	StatusReady      Status = "ready"
	StatusSubmitted  Status = "submitted"
)

// ErrSubmitted is returned when a mutation is attempted on a finalized
// session.
var ErrSubmitted = errors.New("prescription already submitted")

// ErrLineNotFound is returned when a line ID does not exist in the session.
var ErrLineNotFound = errors.New("medication line not found")

// Session is the aggregate for one prescription-building interaction. It
// owns its line list and derived data exclusively; nothing is shared across
// sessions. Derived interactions and allergy warnings are recomputed
// synchronously after every change to the medication set.
type Session struct {
	id          string
	status      Status
	patient     *Patient
	policy      *policy.Policy
	checker     *interaction.Checker
	diagnosis   string
	pharmacyID  string
	identifiers map[policy.IdentifierField]string
	lines       []*Line

	interactions    []*interaction.DrugInteraction
	allergyWarnings []allergy.Warning

	version   int
	changes   []*Event
	createdAt time.Time
	updatedAt time.Time
}

// NewSession starts a prescription-building session for a patient under a
// region policy.
func NewSession(id string, patient *Patient, pol *policy.Policy, checker *interaction.Checker) (*Session, error) {
	if patient == nil {
		return nil, errors.New("patient is required")
	}
	if pol == nil {
		return nil, errors.New("region policy is required")
	}
	if checker == nil {
		return nil, errors.New("interaction checker is required")
	}
	if id == "" {
		id = uuid.New().String()
	}

	now := time.Now().UTC()
	s := &Session{
		id:          id,
		status:      StatusDraft,
		patient:     patient,
		policy:      pol,
		checker:     checker,
		identifiers: make(map[policy.IdentifierField]string),
		createdAt:   now,
		updatedAt:   now,
	}
	s.record(EventSessionStarted, &SessionStartedData{
		SessionID: id,
		PatientID: patient.ID,
		Region:    pol.Region(),
		StartedAt: now,
	})
	return s, nil
}

// ID returns the session ID
func (s *Session) ID() string { return s.id }

// Status returns the current status
func (s *Session) Status() Status { return s.status }

// Version returns the current version
func (s *Session) Version() int { return s.version }

// Region returns the session's regulatory region.
func (s *Session) Region() catalog.Region { return s.policy.Region() }

// Patient returns the session's patient view.
func (s *Session) Patient() *Patient { return s.patient }

// Lines returns the current medication lines in order.
func (s *Session) Lines() []*Line { return s.lines }

// Interactions returns the most recently computed interaction set.
func (s *Session) Interactions() []*interaction.DrugInteraction { return s.interactions }

// AllergyWarnings returns the most recently computed allergy warnings.
func (s *Session) AllergyWarnings() []allergy.Warning { return s.allergyWarnings }

// Changes returns uncommitted events
func (s *Session) Changes() []*Event { return s.changes }

// ClearChanges clears uncommitted events
func (s *Session) ClearChanges() { s.changes = make([]*Event, 0) }

// AddLine appends an empty medication line and returns it.
func (s *Session) AddLine() (*Line, error) {
	if s.status == StatusSubmitted {
		return nil, ErrSubmitted
	}
	line := &Line{ID: uuid.New().String(), Route: "oral"}
	s.lines = append(s.lines, line)
	s.touch()
	s.record(EventLineAdded, &LineAddedData{SessionID: s.id, LineID: line.ID})
	return line, nil
}

// RemoveLine deletes a line and recomputes the derived interaction and
// allergy sets.
func (s *Session) RemoveLine(ctx context.Context, lineID string) error {
	if s.status == StatusSubmitted {
		return ErrSubmitted
	}
	for i, line := range s.lines {
		if line.ID == lineID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			s.touch()
			s.record(EventLineRemoved, &LineRemovedData{SessionID: s.id, LineID: lineID})
			return s.recompute(ctx)
		}
	}
	return ErrLineNotFound
}

// SelectMedication sets a line's medication, re-clamps its refill count to
// the new medication's ceiling, derives controlled-substance handling, and
// recomputes interactions and allergy warnings.
func (s *Session) SelectMedication(ctx context.Context, lineID string, med *catalog.Medication) error {
	if s.status == StatusSubmitted {
		return ErrSubmitted
	}
	if med == nil {
		return errors.New("medication is required")
	}
	line, err := s.line(lineID)
	if err != nil {
		return err
	}

	before := line.Refills
	line.Medication = med
	line.Refills = s.policy.ClampRefills(line.Refills, med)
	line.PaperOnly = false
	if info := s.policy.ControlledSubstanceInfo(med); info != nil {
		line.PaperOnly = info.PaperOnly
	}
	if strengths := med.StrengthsFor(s.Region()); line.Strength == "" && len(strengths) > 0 {
		line.Strength = strengths[0]
	}
	line.deriveSig()
	s.touch()
	s.record(EventMedicationSelected, &MedicationSelectedData{
		SessionID:      s.id,
		LineID:         lineID,
		MedicationID:   med.ID,
		MedicationName: med.Name,
		Schedule:       med.ScheduleFor(s.Region()),
		RefillsBefore:  before,
		RefillsAfter:   line.Refills,
	})
	return s.recompute(ctx)
}

// SetDosage updates a line's dosage text and re-derives the sig.
func (s *Session) SetDosage(lineID, dose string) error {
	return s.editLine(lineID, func(line *Line) {
		line.Dosage = dose
		line.deriveSig()
	})
}

// SetStrength updates a line's strength.
func (s *Session) SetStrength(lineID, strength string) error {
	return s.editLine(lineID, func(line *Line) {
		line.Strength = strength
		line.deriveSig()
	})
}

// SetFrequency updates a line's frequency and re-derives the sig.
func (s *Session) SetFrequency(lineID string, freq dosage.Frequency) error {
	if !freq.Valid() {
		return fmt.Errorf("unknown frequency: %q", freq)
	}
	return s.editLine(lineID, func(line *Line) {
		line.Frequency = freq
		line.deriveSig()
	})
}

// SetRoute updates a line's administration route and re-derives the sig.
func (s *Session) SetRoute(lineID, route string) error {
	return s.editLine(lineID, func(line *Line) {
		line.Route = route
		line.deriveSig()
	})
}

// SetDuration updates a line's duration in days. This is the one edit that
// replaces the user-entered quantity with the recommended quantity; every
// other edit leaves the quantity field authoritative.
func (s *Session) SetDuration(lineID string, days int) error {
	return s.editLine(lineID, func(line *Line) {
		line.DurationDays = days
		if calc := line.Calculation(); calc != nil {
			line.Quantity = calc.RecommendedQuantity
		}
	})
}

// SetQuantity sets an explicit dispense quantity.
func (s *Session) SetQuantity(lineID string, quantity int) error {
	return s.editLine(lineID, func(line *Line) {
		line.Quantity = quantity
	})
}

// SetRefills sets a line's refill count, clamped to the region ceiling for
// the currently selected medication.
func (s *Session) SetRefills(lineID string, refills int) error {
	return s.editLine(lineID, func(line *Line) {
		line.Refills = s.policy.ClampRefills(refills, line.Medication)
	})
}

// SetSig overrides the auto-derived usage instruction; once overridden the
// session stops re-deriving it.
func (s *Session) SetSig(lineID, sig string) error {
	return s.editLine(lineID, func(line *Line) {
		line.Sig = sig
		line.sigOverridden = true
	})
}

// SetDiagnosis sets the prescription diagnosis text.
func (s *Session) SetDiagnosis(diagnosis string) error {
	if s.status == StatusSubmitted {
		return ErrSubmitted
	}
	s.diagnosis = diagnosis
	s.touch()
	return nil
}

// SetPharmacy sets the optional destination pharmacy.
func (s *Session) SetPharmacy(pharmacyID string) error {
	if s.status == StatusSubmitted {
		return ErrSubmitted
	}
	s.pharmacyID = pharmacyID
	s.touch()
	return nil
}

// SetIdentifier records a prescriber regulatory identifier (DEA, NPI, or
// license number depending on region).
func (s *Session) SetIdentifier(field policy.IdentifierField, value string) error {
	if s.status == StatusSubmitted {
		return ErrSubmitted
	}
	s.identifiers[field] = value
	s.touch()
	return nil
}

// Validate recomputes derived state and runs every hard-stop check, moving
// the session to blocked or ready and returning the itemized result.
func (s *Session) Validate(ctx context.Context) (*ValidationResult, error) {
	if s.status == StatusSubmitted {
		return nil, ErrSubmitted
	}
	s.status = StatusValidating
	if err := s.recompute(ctx); err != nil {
		s.status = StatusDraft
		return nil, err
	}

	result := s.validate()
	s.status = result.Status
	if result.Blocked() {
		s.record(EventValidationBlocked, &ValidationBlockedData{
			SessionID: s.id,
			Reasons:   result.Reasons,
			BlockedAt: time.Now().UTC(),
		})
	}
	return result, nil
}

// Submit validates the session and, if nothing blocks it, produces the
// immutable prescription record and moves the session to its terminal state.
// A blocked session returns a *ValidationError carrying every reason.
func (s *Session) Submit(ctx context.Context) (*Prescription, error) {
	result, err := s.Validate(ctx)
	if err != nil {
		return nil, err
	}
	if result.Blocked() {
		return nil, &ValidationError{Reasons: result.Reasons}
	}

	rx := s.snapshot(result)
	s.status = StatusSubmitted
	s.touch()
	s.record(EventPrescriptionSubmitted, &PrescriptionSubmittedData{
		SessionID:      s.id,
		PrescriptionID: rx.ID,
		PatientID:      s.patient.ID,
		LineCount:      len(rx.Lines),
		WarningCount:   len(rx.Warnings),
		SubmittedAt:    rx.SubmittedAt,
	})
	return rx, nil
}

// snapshot freezes the session into an immutable prescription record.
func (s *Session) snapshot(result *ValidationResult) *Prescription {
	rx := &Prescription{
		ID:          uuid.New().String(),
		SessionID:   s.id,
		PatientID:   s.patient.ID,
		PatientName: s.patient.Name,
		Region:      s.Region(),
		Diagnosis:   s.diagnosis,
		PharmacyID:  s.pharmacyID,
		Identifiers: make(map[policy.IdentifierField]string, len(s.identifiers)),
		Lines:       make([]LineSnapshot, 0, len(s.lines)),
		Warnings:    append([]string(nil), result.Warnings...),
		SubmittedAt: time.Now().UTC(),
	}
	for k, v := range s.identifiers {
		rx.Identifiers[k] = v
	}
	for _, line := range s.lines {
		rx.Lines = append(rx.Lines, LineSnapshot{
			LineID:         line.ID,
			MedicationID:   line.Medication.ID,
			MedicationName: line.Medication.Name,
			Schedule:       line.Medication.ScheduleFor(s.Region()),
			Dosage:         line.Dosage,
			Strength:       line.Strength,
			Frequency:      line.Frequency,
			Route:          line.Route,
			DurationDays:   line.DurationDays,
			Quantity:       line.Quantity,
			Refills:        line.Refills,
			Sig:            line.Sig,
			PaperOnly:      line.PaperOnly,
			Calculation:    line.Calculation(),
		})
	}
	for _, in := range s.interactions {
		rx.Interactions = append(rx.Interactions, *in)
	}
	rx.AllergyWarnings = append(rx.AllergyWarnings, s.allergyWarnings...)
	return rx
}

// recompute rebuilds the derived interaction and allergy sets from the
// current medication selection. The patient's active medications are included
// in the interaction check so a new line is screened against what the
// patient already takes.
func (s *Session) recompute(ctx context.Context) error {
	selected := s.selectedNames()

	seen := make(map[string]bool, len(selected))
	var names []string
	for _, name := range append(append([]string(nil), selected...), s.patient.ActiveMedications...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	interactions, err := s.checker.CheckAll(ctx, names, s.Region())
	if err != nil {
		return fmt.Errorf("interaction check: %w", err)
	}
	s.interactions = interactions
	s.allergyWarnings = allergy.CrossReference(s.patient.Allergies, selected)
	return nil
}

func (s *Session) selectedNames() []string {
	var names []string
	for _, line := range s.lines {
		if line.Medication != nil {
			names = append(names, line.Medication.Name)
		}
	}
	return names
}

func (s *Session) line(lineID string) (*Line, error) {
	for _, line := range s.lines {
		if line.ID == lineID {
			return line, nil
		}
	}
	return nil, ErrLineNotFound
}

func (s *Session) editLine(lineID string, edit func(*Line)) error {
	if s.status == StatusSubmitted {
		return ErrSubmitted
	}
	line, err := s.line(lineID)
	if err != nil {
		return err
	}
	edit(line)
	s.touch()
	return nil
}

func (s *Session) touch() {
	s.updatedAt = time.Now().UTC()
	// Any edit after a validation run invalidates its verdict.
	if s.status == StatusBlocked || s.status == StatusReady {
		s.status = StatusDraft
	}
}

func (s *Session) record(eventType EventType, data interface{}) {
	event, err := NewEvent(s.id, eventType, data)
	if err != nil {
		return
	}
	event.WithAuditInfo(s.patient.ID, s.Region())
	s.version++
	event.Version = s.version
	s.changes = append(s.changes, event)
}
