package memory

import (
	"context"
	"testing"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/interaction"
)

func TestLookupIsUnordered(t *testing.T) {
	store := NewInteractionStore(SeedInteractions())
	ctx := context.Background()

	ab, err := store.Lookup(ctx, "Sertraline", "Tranylcypromine", catalog.RegionUS)
	if err != nil || ab == nil {
		t.Fatalf("lookup a,b: %v %v", ab, err)
	}
	ba, err := store.Lookup(ctx, "Tranylcypromine", "Sertraline", catalog.RegionUS)
	if err != nil || ba == nil {
		t.Fatalf("lookup b,a: %v %v", ba, err)
	}
	if ab.Severity != ba.Severity {
		t.Errorf("unordered lookup mismatch: %s vs %s", ab.Severity, ba.Severity)
	}
}

func TestLookupUnknownPairReturnsNil(t *testing.T) {
	store := NewInteractionStore(SeedInteractions())

	rec, err := store.Lookup(context.Background(), "Sertraline", "Quetiapine", catalog.RegionUS)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil for unknown pair, got %+v", rec)
	}
}

func TestRegionSpecificRecordWins(t *testing.T) {
	records := []InteractionRecord{
		{DrugA: "A", DrugB: "B", Severity: interaction.SeverityModerate},
		{DrugA: "A", DrugB: "B", Region: catalog.RegionTR, Severity: interaction.SeveritySevere},
	}
	store := NewInteractionStore(records)
	ctx := context.Background()

	tr, err := store.Lookup(ctx, "A", "B", catalog.RegionTR)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if tr.Severity != interaction.SeveritySevere {
		t.Errorf("expected TR override severe, got %s", tr.Severity)
	}

	us, err := store.Lookup(ctx, "A", "B", catalog.RegionUS)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if us.Severity != interaction.SeverityModerate {
		t.Errorf("expected region-neutral moderate, got %s", us.Severity)
	}
}
