// Package allergy cross-references patient allergies against selected
// medication names.
package allergy

import (
	"fmt"
	"strings"
)

// Warning flags a possible allergen match for one medication.
type Warning struct {
	Medication string `json:"medication"`
	Allergen   string `json:"allergen"`
	Message    string `json:"message"`
}

// CrossReference emits a warning for every medication whose name contains a
// patient allergy substance as a case-insensitive substring. This is a
// conservative name-level heuristic, not an ingredient cross-reference; it is
// advisory and never blocks submission.
func CrossReference(patientAllergies, medicationNames []string) []Warning {
	var warnings []Warning
	for _, med := range medicationNames {
		medLower := strings.ToLower(med)
		for _, allergen := range patientAllergies {
			if allergen == "" {
				continue
			}
			if strings.Contains(medLower, strings.ToLower(allergen)) {
				warnings = append(warnings, Warning{
					Medication: med,
					Allergen:   allergen,
					Message:    fmt.Sprintf("%s may contain %s", med, allergen),
				})
			}
		}
	}
	return warnings
}
