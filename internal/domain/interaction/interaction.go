// Package interaction computes pairwise drug-drug interactions for a set of
// selected medications.
package interaction

// Severity ranks how dangerous a known interaction is.
type Severity string

const (
	SeverityMinor           Severity = "minor"
	SeverityModerate        Severity = "moderate"
	SeveritySevere          Severity = "severe"
	SeverityContraindicated Severity = "contraindicated"
)

var severityOrder = map[Severity]int{
	SeverityMinor:           0,
	SeverityModerate:        1,
	SeveritySevere:          2,
	SeverityContraindicated: 3,
}

// Rank returns the ordering value of a severity; unknown severities rank
// below minor.
func (s Severity) Rank() int {
	if r, ok := severityOrder[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is as severe as other or more so.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// DrugInteraction is a derived fact about one unordered medication pair. It
// is recomputed from scratch whenever the medication set changes and never
// stored independently of a prescription snapshot.
type DrugInteraction struct {
	DrugA          string   `json:"drug_a"`
	DrugB          string   `json:"drug_b"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
	Alternatives   []string `json:"alternatives,omitempty"`
}
