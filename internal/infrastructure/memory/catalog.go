// Package memory provides in-memory repository adapters. They back tests and
// the demo configuration; production deployments swap in the postgres
// adapters.
package memory

import (
	"context"
	"strings"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
)

// MedicationStore is an in-memory catalog.Repository.
type MedicationStore struct {
	medications []*catalog.Medication
}

// NewMedicationStore creates a store over the given reference set.
func NewMedicationStore(medications []*catalog.Medication) *MedicationStore {
	return &MedicationStore{medications: medications}
}

// Find matches the substring case-insensitively against canonical, generic,
// and brand names.
func (s *MedicationStore) Find(ctx context.Context, substring string, region catalog.Region) ([]*catalog.Medication, error) {
	lower := strings.ToLower(substring)
	var matches []*catalog.Medication
	for _, m := range s.medications {
		if containsFold(m.Name, lower) ||
			containsFold(m.GenericName, lower) ||
			containsFold(m.BrandName, lower) ||
			containsFold(m.LocalNames[region], lower) {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func containsFold(name, lowerTerm string) bool {
	if name == "" {
		return false
	}
	return strings.Contains(strings.ToLower(name), lowerTerm)
}

// SeedMedications returns a small psychiatric reference set for demos and
// tests.
func SeedMedications() []*catalog.Medication {
	return []*catalog.Medication{
		{
			ID:          "med-sertraline",
			Name:        "Sertraline",
			GenericName: "sertraline hydrochloride",
			BrandName:   "Zoloft",
			DosageForms: []string{"tablet"},
			Strengths: map[catalog.Region][]string{
				catalog.RegionUS: {"25mg", "50mg", "100mg"},
				catalog.RegionEU: {"50mg", "100mg"},
			},
			Category:   "SSRI",
			RequiresRx: true,
		},
		{
			ID:          "med-fluoxetine",
			Name:        "Fluoxetine",
			GenericName: "fluoxetine hydrochloride",
			BrandName:   "Prozac",
			DosageForms: []string{"capsule", "tablet"},
			Strengths: map[catalog.Region][]string{
				catalog.RegionUS: {"10mg", "20mg", "40mg"},
			},
			Category:   "SSRI",
			RequiresRx: true,
		},
		{
			ID:          "med-tranylcypromine",
			Name:        "Tranylcypromine",
			GenericName: "tranylcypromine sulfate",
			BrandName:   "Parnate",
			DosageForms: []string{"tablet"},
			Strengths: map[catalog.Region][]string{
				catalog.RegionUS: {"10mg"},
			},
			Category:   "MAOI",
			RequiresRx: true,
		},
		{
			ID:          "med-alprazolam",
			Name:        "Alprazolam",
			GenericName: "alprazolam",
			BrandName:   "Xanax",
			DosageForms: []string{"tablet"},
			Strengths: map[catalog.Region][]string{
				catalog.RegionUS: {"0.25mg", "0.5mg", "1mg"},
			},
			Category: "benzodiazepine",
			Schedules: map[catalog.Region]string{
				catalog.RegionUS: "IV",
				catalog.RegionEU: "controlled",
				catalog.RegionTR: "controlled",
			},
			RequiresRx: true,
		},
		{
			ID:          "med-methylphenidate",
			Name:        "Methylphenidate",
			GenericName: "methylphenidate hydrochloride",
			BrandName:   "Ritalin",
			DosageForms: []string{"tablet", "capsule"},
			Strengths: map[catalog.Region][]string{
				catalog.RegionUS: {"5mg", "10mg", "20mg"},
			},
			Category: "stimulant",
			Schedules: map[catalog.Region]string{
				catalog.RegionUS: "II",
				catalog.RegionEU: "controlled",
				catalog.RegionTR: "controlled",
			},
			RequiresRx: true,
		},
		{
			ID:          "med-lithium",
			Name:        "Lithium Carbonate",
			GenericName: "lithium carbonate",
			DosageForms: []string{"capsule", "tablet"},
			Strengths: map[catalog.Region][]string{
				catalog.RegionUS: {"150mg", "300mg", "600mg"},
			},
			Category:   "mood stabilizer",
			RequiresRx: true,
		},
		{
			ID:          "med-quetiapine",
			Name:        "Quetiapine",
			GenericName: "quetiapine fumarate",
			BrandName:   "Seroquel",
			DosageForms: []string{"tablet"},
			Strengths: map[catalog.Region][]string{
				catalog.RegionUS: {"25mg", "50mg", "100mg", "200mg"},
			},
			Category:   "atypical antipsychotic",
			RequiresRx: true,
			LocalNames: map[catalog.Region]string{
				catalog.RegionTR: "Ketiapin",
			},
		},
	}
}
