package screening_test

import (
	"context"
	"testing"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/interaction"
	"github.com/psychrx/go-rxguard/internal/domain/prescription"
	"github.com/psychrx/go-rxguard/internal/domain/screening"
	"github.com/psychrx/go-rxguard/internal/infrastructure/memory"
)

func newTestScreener(t *testing.T, patients []*prescription.Patient) *screening.Screener {
	t.Helper()
	checker := interaction.NewChecker(memory.NewInteractionStore(memory.SeedInteractions()))
	return screening.NewScreener(memory.NewPatientStore(patients), checker, 4, nil)
}

func TestScreenPatientsFlagsInteractions(t *testing.T) {
	patients := []*prescription.Patient{
		{
			ID:                "pat-a",
			Name:              "Flagged Patient",
			ActiveMedications: []string{"Sertraline", "Tranylcypromine"},
		},
		{
			ID:   "pat-b",
			Name: "Clean Patient",
		},
	}
	s := newTestScreener(t, patients)

	screens, err := s.ScreenPatients(context.Background(), []string{"pat-a", "pat-b"}, catalog.RegionUS)
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	if len(screens) != 2 {
		t.Fatalf("expected 2 screens, got %d", len(screens))
	}

	byID := map[string]*screening.PatientScreen{}
	for _, sc := range screens {
		byID[sc.PatientID] = sc
	}

	flagged := byID["pat-a"]
	if flagged == nil || !flagged.Flagged {
		t.Fatalf("expected pat-a flagged, got %+v", flagged)
	}
	if len(flagged.Interactions) != 1 || flagged.Interactions[0].Severity != interaction.SeverityContraindicated {
		t.Errorf("unexpected interactions: %+v", flagged.Interactions)
	}

	clean := byID["pat-b"]
	if clean == nil || clean.Flagged {
		t.Errorf("expected pat-b clean, got %+v", clean)
	}
}

func TestScreenPatientsReportsPerPatientErrors(t *testing.T) {
	s := newTestScreener(t, memory.SeedPatients())

	screens, err := s.ScreenPatients(context.Background(), []string{"pat-001", "pat-missing"}, catalog.RegionUS)
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	if len(screens) != 2 {
		t.Fatalf("expected 2 screens, got %d", len(screens))
	}

	var sawError bool
	for _, sc := range screens {
		if sc.PatientID == "pat-missing" {
			if sc.Error == "" {
				t.Error("expected error on missing patient screen")
			}
			sawError = true
		}
	}
	if !sawError {
		t.Error("missing patient screen not returned")
	}
}

func TestScreenPatientsFlagsAllergyConflicts(t *testing.T) {
	patients := []*prescription.Patient{
		{
			ID:                "pat-c",
			Name:              "Allergy Patient",
			Allergies:         []string{"lithium"},
			ActiveMedications: []string{"Lithium Carbonate"},
		},
	}
	s := newTestScreener(t, patients)

	screens, err := s.ScreenPatients(context.Background(), []string{"pat-c"}, catalog.RegionUS)
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	if len(screens) != 1 {
		t.Fatalf("expected 1 screen, got %d", len(screens))
	}
	if !screens[0].Flagged || len(screens[0].AllergyWarnings) != 1 {
		t.Errorf("expected allergy flag, got %+v", screens[0])
	}
}

func TestScreenPatientsEmptyRoster(t *testing.T) {
	s := newTestScreener(t, nil)
	screens, err := s.ScreenPatients(context.Background(), nil, catalog.RegionUS)
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	if screens != nil {
		t.Errorf("expected nil for empty roster, got %v", screens)
	}
}
