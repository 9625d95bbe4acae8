package prescription

import (
	"fmt"
	"strings"

	"github.com/psychrx/go-rxguard/internal/domain/allergy"
	"github.com/psychrx/go-rxguard/internal/domain/interaction"
)

// ReasonCode classifies a hard-stop validation failure.
type ReasonCode string

const (
	ReasonContraindicated   ReasonCode = "contraindicated_interaction"
	ReasonMissingDiagnosis  ReasonCode = "missing_diagnosis"
	ReasonMissingIdentifier ReasonCode = "missing_identifier"
	ReasonIncompleteLine    ReasonCode = "incomplete_line"
	ReasonNotPrescribable   ReasonCode = "not_prescribable"
)

// BlockReason is one itemized hard-stop condition. Validation always returns
// the full list, never a single opaque failure.
type BlockReason struct {
	Code    ReasonCode `json:"code"`
	Message string     `json:"message"`
	LineID  string     `json:"line_id,omitempty"`
}

func (r BlockReason) String() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// ValidationResult carries the outcome of one validation run: the resulting
// session status, itemized blocking reasons, and advisory warnings that never
// prevent submission.
type ValidationResult struct {
	Status          Status                         `json:"status"`
	Reasons         []BlockReason                  `json:"reasons,omitempty"`
	Warnings        []string                       `json:"warnings,omitempty"`
	Interactions    []*interaction.DrugInteraction `json:"interactions,omitempty"`
	AllergyWarnings []allergy.Warning              `json:"allergy_warnings,omitempty"`
}

// Blocked reports whether any hard-stop condition is present.
func (v *ValidationResult) Blocked() bool { return len(v.Reasons) > 0 }

// ValidationError wraps the blocking reasons when submission is refused.
type ValidationError struct {
	Reasons []BlockReason
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		msgs[i] = r.String()
	}
	return "prescription blocked: " + strings.Join(msgs, "; ")
}

// validate runs every hard-stop check over the session's current state and
// collects advisory warnings alongside.
func (s *Session) validate() *ValidationResult {
	result := &ValidationResult{
		Interactions:    s.interactions,
		AllergyWarnings: s.allergyWarnings,
	}

	if interaction.HasContraindicated(s.interactions) {
		for _, in := range s.interactions {
			if in.Severity == interaction.SeverityContraindicated {
				result.Reasons = append(result.Reasons, BlockReason{
					Code:    ReasonContraindicated,
					Message: fmt.Sprintf("contraindicated interaction between %s and %s", in.DrugA, in.DrugB),
				})
			}
		}
	}

	if strings.TrimSpace(s.diagnosis) == "" {
		result.Reasons = append(result.Reasons, BlockReason{
			Code:    ReasonMissingDiagnosis,
			Message: "diagnosis is required",
		})
	}

	for _, field := range s.policy.RequiredIdentifiers() {
		if strings.TrimSpace(s.identifiers[field]) == "" {
			result.Reasons = append(result.Reasons, BlockReason{
				Code:    ReasonMissingIdentifier,
				Message: fmt.Sprintf("prescriber %s number is required in region %s", field, s.policy.Region()),
			})
		}
	}

	for _, line := range s.lines {
		if !line.Complete() {
			result.Reasons = append(result.Reasons, BlockReason{
				Code:    ReasonIncompleteLine,
				Message: incompleteLineMessage(line),
				LineID:  line.ID,
			})
			continue
		}
		if info := s.policy.ControlledSubstanceInfo(line.Medication); info != nil && !info.Prescribable {
			result.Reasons = append(result.Reasons, BlockReason{
				Code:    ReasonNotPrescribable,
				Message: fmt.Sprintf("%s is schedule %s and cannot be prescribed", line.MedicationName(), info.Schedule),
				LineID:  line.ID,
			})
		}
	}

	// Advisory warnings: never block.
	for _, in := range s.interactions {
		if in.Severity != interaction.SeverityContraindicated {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s interaction between %s and %s: %s", in.Severity, in.DrugA, in.DrugB, in.Description))
		}
	}
	for _, w := range s.allergyWarnings {
		result.Warnings = append(result.Warnings, w.Message)
	}
	for _, line := range s.lines {
		if advisory := s.policy.AdvisoryRefillCeiling(); advisory > 0 && line.Refills > advisory {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("refill count %d for %s exceeds the recommended maximum of %d", line.Refills, line.MedicationName(), advisory))
		}
	}

	if result.Blocked() {
		result.Status = StatusBlocked
	} else {
		result.Status = StatusReady
	}
	return result
}

func incompleteLineMessage(line *Line) string {
	var missing []string
	if line.Medication == nil {
		missing = append(missing, "medication")
	}
	if line.Strength == "" {
		missing = append(missing, "strength")
	}
	if !line.Frequency.Valid() {
		missing = append(missing, "frequency")
	}
	if line.DurationDays <= 0 {
		missing = append(missing, "duration")
	}
	return "medication line is missing " + strings.Join(missing, ", ")
}
