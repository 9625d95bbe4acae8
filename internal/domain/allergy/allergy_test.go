package allergy

import "testing"

func TestCrossReferenceSubstringMatch(t *testing.T) {
	warnings := CrossReference([]string{"Penicillin"}, []string{"Penicillin VK", "Sertraline"})
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	w := warnings[0]
	if w.Medication != "Penicillin VK" || w.Allergen != "Penicillin" {
		t.Errorf("unexpected warning: %+v", w)
	}
	if w.Message != "Penicillin VK may contain Penicillin" {
		t.Errorf("unexpected message: %q", w.Message)
	}
}

func TestCrossReferenceIsCaseInsensitive(t *testing.T) {
	warnings := CrossReference([]string{"penicillin"}, []string{"PENICILLIN G"})
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
}

func TestCrossReferenceNoMatch(t *testing.T) {
	warnings := CrossReference([]string{"Latex", ""}, []string{"Sertraline", "Fluoxetine"})
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

func TestCrossReferenceMultipleAllergens(t *testing.T) {
	warnings := CrossReference([]string{"sulfa", "codeine"}, []string{"Sulfamethoxazole", "Codeine Phosphate"})
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(warnings))
	}
}
