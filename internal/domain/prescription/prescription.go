package prescription

import (
	"context"
	"time"

	"github.com/psychrx/go-rxguard/internal/domain/allergy"
	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/dosage"
	"github.com/psychrx/go-rxguard/internal/domain/interaction"
	"github.com/psychrx/go-rxguard/internal/domain/policy"
)

// LineSnapshot is the frozen form of a medication line at submission time.
type LineSnapshot struct {
	LineID         string           `json:"line_id"`
	MedicationID   string           `json:"medication_id"`
	MedicationName string           `json:"medication_name"`
	Schedule       string           `json:"schedule,omitempty"`
	Dosage         string           `json:"dosage"`
	Strength       string           `json:"strength"`
	Frequency      dosage.Frequency `json:"frequency"`
	Route          string           `json:"route"`
	DurationDays   int              `json:"duration_days"`
	Quantity       int              `json:"quantity"`
	Refills        int              `json:"refills"`
	Sig            string           `json:"sig"`
	PaperOnly      bool             `json:"paper_only,omitempty"`
	Calculation    *dosage.Result   `json:"calculation,omitempty"`
}

// Prescription is the immutable record produced by a successful submission.
// All derived data (interactions, allergy warnings, dosage calculations) is
// snapshotted at submission time, not recomputed later.
type Prescription struct {
	ID              string                            `json:"id"`
	SessionID       string                            `json:"session_id"`
	PatientID       string                            `json:"patient_id"`
	PatientName     string                            `json:"patient_name"`
	Region          catalog.Region                    `json:"region"`
	Diagnosis       string                            `json:"diagnosis"`
	PharmacyID      string                            `json:"pharmacy_id,omitempty"`
	Identifiers     map[policy.IdentifierField]string `json:"identifiers"`
	Lines           []LineSnapshot                    `json:"lines"`
	Interactions    []interaction.DrugInteraction     `json:"interactions,omitempty"`
	AllergyWarnings []allergy.Warning                 `json:"allergy_warnings,omitempty"`
	Warnings        []string                          `json:"warnings,omitempty"`
	SubmittedAt     time.Time                         `json:"submitted_at"`
}

// Sink accepts a finalized, validated prescription for storage. The core's
// responsibility ends at this hand-off.
type Sink interface {
	Store(ctx context.Context, rx *Prescription) error
}
