package interaction

import (
	"context"
	"strings"
	"testing"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
)

type fakeRepo struct {
	records map[string]*DrugInteraction
	lookups int
}

func (f *fakeRepo) Lookup(ctx context.Context, nameA, nameB string, region catalog.Region) (*DrugInteraction, error) {
	f.lookups++
	key := pairKey(nameA, nameB)
	return f.records[key], nil
}

func pairKey(a, b string) string {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la > lb {
		la, lb = lb, la
	}
	return la + "|" + lb
}

func record(a, b string, sev Severity) *DrugInteraction {
	return &DrugInteraction{DrugA: a, DrugB: b, Severity: sev}
}

func TestCheckAllRequiresTwoNames(t *testing.T) {
	repo := &fakeRepo{}
	checker := NewChecker(repo)

	for _, names := range [][]string{nil, {}, {"Sertraline"}} {
		found, err := checker.CheckAll(context.Background(), names, catalog.RegionUS)
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if len(found) != 0 {
			t.Errorf("expected no interactions for %v, got %d", names, len(found))
		}
	}
	if repo.lookups != 0 {
		t.Errorf("expected no lookups for fewer than two names, got %d", repo.lookups)
	}
}

func TestCheckAllCoversEveryPairOnce(t *testing.T) {
	repo := &fakeRepo{records: map[string]*DrugInteraction{}}
	checker := NewChecker(repo)

	names := []string{"A", "B", "C", "D"}
	if _, err := checker.CheckAll(context.Background(), names, catalog.RegionUS); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if repo.lookups != 6 {
		t.Errorf("expected 6 pairwise lookups for 4 names, got %d", repo.lookups)
	}
}

func TestCheckAllOrdersMostSevereFirst(t *testing.T) {
	repo := &fakeRepo{records: map[string]*DrugInteraction{
		pairKey("A", "B"): record("A", "B", SeverityMinor),
		pairKey("A", "C"): record("A", "C", SeverityContraindicated),
		pairKey("B", "C"): record("B", "C", SeverityModerate),
	}}
	checker := NewChecker(repo)

	found, err := checker.CheckAll(context.Background(), []string{"A", "B", "C"}, catalog.RegionUS)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if len(found) != 3 {
		t.Fatalf("expected 3 interactions, got %d", len(found))
	}

	want := []Severity{SeverityContraindicated, SeverityModerate, SeverityMinor}
	for i, sev := range want {
		if found[i].Severity != sev {
			t.Errorf("position %d: expected %s, got %s", i, sev, found[i].Severity)
		}
	}
}

func TestHasContraindicated(t *testing.T) {
	set := []*DrugInteraction{
		record("A", "B", SeverityModerate),
		record("A", "C", SeveritySevere),
	}
	if HasContraindicated(set) {
		t.Error("severe alone must not count as contraindicated")
	}

	set = append(set, record("B", "C", SeverityContraindicated))
	if !HasContraindicated(set) {
		t.Error("expected contraindicated interaction to be detected")
	}
}

func TestSeverityRanking(t *testing.T) {
	ordered := []Severity{SeverityMinor, SeverityModerate, SeveritySevere, SeverityContraindicated}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("%s should rank above %s", ordered[i], ordered[i-1])
		}
	}
	if !SeveritySevere.AtLeast(SeverityModerate) {
		t.Error("severe should be at least moderate")
	}
	if SeverityMinor.AtLeast(SeverityModerate) {
		t.Error("minor should not be at least moderate")
	}
	if Severity("unknown").Rank() >= SeverityMinor.Rank() {
		t.Error("unknown severity should rank below minor")
	}
}
