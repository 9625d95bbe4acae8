package prescription

import (
	"context"
	"fmt"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/dosage"
)

// Patient is the read-only patient view the session consumes. The core never
// mutates patient records; it only reads allergies and active medications to
// cross-check a new prescription.
type Patient struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	DateOfBirth       string   `json:"date_of_birth"`
	Allergies         []string `json:"allergies"`
	ActiveMedications []string `json:"active_medications"`
}

// PatientRepository is the read-only patient source.
type PatientRepository interface {
	Get(ctx context.Context, id string) (*Patient, error)
}

// Line is one medication line in a prescription being built. Fields are
// mutated through the session so derived state stays in sync.
type Line struct {
	ID           string               `json:"id"`
	Medication   *catalog.Medication  `json:"medication,omitempty"`
	Dosage       string               `json:"dosage"`
	Strength     string               `json:"strength"`
	Frequency    dosage.Frequency     `json:"frequency,omitempty"`
	Route        string               `json:"route"`
	DurationDays int                  `json:"duration_days"`
	Quantity     int                  `json:"quantity"`
	Refills      int                  `json:"refills"`
	Sig          string               `json:"sig"`
	PaperOnly    bool                 `json:"paper_only,omitempty"`

	sigOverridden bool
}

// Complete reports whether the line carries everything a submittable
// prescription needs: a chosen medication, a strength, a frequency, and a
// positive duration.
func (l *Line) Complete() bool {
	return l.Medication != nil &&
		l.Strength != "" &&
		l.Frequency.Valid() &&
		l.DurationDays > 0
}

// MedicationName returns the selected medication's canonical name, or ""
// when none is chosen yet.
func (l *Line) MedicationName() string {
	if l.Medication == nil {
		return ""
	}
	return l.Medication.Name
}

// Calculation returns the advisory dosage figures for the line's current
// inputs, or nil when they are not yet computable.
func (l *Line) Calculation() *dosage.Result {
	return dosage.Calculate(l.Strength, l.Frequency, l.DurationDays)
}

// deriveSig refreshes the auto-derived usage instruction unless the user has
// overridden it.
func (l *Line) deriveSig() {
	if l.sigOverridden {
		return
	}
	dose := l.Dosage
	if dose == "" {
		dose = l.Strength
	}
	if dose == "" || l.Route == "" || !l.Frequency.Valid() {
		return
	}
	l.Sig = fmt.Sprintf("Take %s by %s route %s", dose, l.Route, l.Frequency.Label())
}
