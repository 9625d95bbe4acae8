package memory

import (
	"context"
	"strings"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/interaction"
)

// InteractionRecord is one seeded interaction fact. Region "" applies to all
// regions; a region-specific record overrides it.
type InteractionRecord struct {
	DrugA          string
	DrugB          string
	Region         catalog.Region
	Severity       interaction.Severity
	Description    string
	Recommendation string
	Alternatives   []string
}

// InteractionStore is an in-memory interaction.Repository keyed by unordered
// name pair.
type InteractionStore struct {
	byPair map[string]map[catalog.Region]*InteractionRecord
}

// NewInteractionStore indexes the given records for unordered lookup.
func NewInteractionStore(records []InteractionRecord) *InteractionStore {
	s := &InteractionStore{byPair: make(map[string]map[catalog.Region]*InteractionRecord)}
	for i := range records {
		rec := records[i]
		key := pairKey(rec.DrugA, rec.DrugB)
		if s.byPair[key] == nil {
			s.byPair[key] = make(map[catalog.Region]*InteractionRecord)
		}
		s.byPair[key][rec.Region] = &rec
	}
	return s
}

// Lookup returns the known interaction for an unordered name pair, preferring
// a region-specific record over the region-neutral one. A nil result means no
// known data.
func (s *InteractionStore) Lookup(ctx context.Context, nameA, nameB string, region catalog.Region) (*interaction.DrugInteraction, error) {
	byRegion, ok := s.byPair[pairKey(nameA, nameB)]
	if !ok {
		return nil, nil
	}
	rec, ok := byRegion[region]
	if !ok {
		rec, ok = byRegion[""]
	}
	if !ok {
		return nil, nil
	}
	return &interaction.DrugInteraction{
		DrugA:          rec.DrugA,
		DrugB:          rec.DrugB,
		Severity:       rec.Severity,
		Description:    rec.Description,
		Recommendation: rec.Recommendation,
		Alternatives:   rec.Alternatives,
	}, nil
}

func pairKey(a, b string) string {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la > lb {
		la, lb = lb, la
	}
	return la + "|" + lb
}

// SeedInteractions returns reference interaction data for demos and tests.
func SeedInteractions() []InteractionRecord {
	return []InteractionRecord{
		{
			DrugA:          "Sertraline",
			DrugB:          "Tranylcypromine",
			Severity:       interaction.SeverityContraindicated,
			Description:    "Concurrent SSRI and MAOI use risks serotonin syndrome",
			Recommendation: "Do not combine; allow a 14-day washout between agents",
			Alternatives:   []string{"Bupropion", "Mirtazapine"},
		},
		{
			DrugA:          "Fluoxetine",
			DrugB:          "Tranylcypromine",
			Severity:       interaction.SeverityContraindicated,
			Description:    "Concurrent SSRI and MAOI use risks serotonin syndrome",
			Recommendation: "Do not combine; fluoxetine requires a 5-week washout",
		},
		{
			DrugA:          "Sertraline",
			DrugB:          "Fluoxetine",
			Severity:       interaction.SeverityModerate,
			Description:    "Duplicate SSRI therapy increases serotonergic burden",
			Recommendation: "Avoid duplicate therapy unless cross-tapering",
		},
		{
			DrugA:          "Lithium Carbonate",
			DrugB:          "Fluoxetine",
			Severity:       interaction.SeverityModerate,
			Description:    "SSRIs may raise lithium levels",
			Recommendation: "Monitor lithium levels after initiation",
		},
		{
			DrugA:          "Alprazolam",
			DrugB:          "Quetiapine",
			Severity:       interaction.SeverityMinor,
			Description:    "Additive sedation",
			Recommendation: "Counsel on drowsiness; avoid driving until tolerance is known",
		},
	}
}
