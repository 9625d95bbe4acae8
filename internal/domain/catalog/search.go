package catalog

import (
	"context"
	"sort"
	"strings"
)

// MinSearchLength is the shortest term the service will look up. Anything
// shorter returns an empty result without touching the repository.
const MinSearchLength = 2

// MaxSearchResults caps the candidate list returned to the caller.
const MaxSearchResults = 5

// SearchResult is one ranked candidate for a search term.
type SearchResult struct {
	Medication  *Medication `json:"medication"`
	DisplayName string      `json:"display_name"`
	Strengths   []string    `json:"strengths"`
	Schedule    string      `json:"schedule,omitempty"`
	rank        int
}

// Service performs region-aware catalog searches. It is a pure read over the
// repository and safe to call on every keystroke; debouncing is the caller's
// concern.
type Service struct {
	repo Repository
}

// NewService creates a search service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search returns up to MaxSearchResults candidates for term, best first.
// Exact name matches rank above prefix matches, which rank above substring
// matches; ties break alphabetically so ordering is deterministic.
func (s *Service) Search(ctx context.Context, term string, region Region) ([]*SearchResult, error) {
	term = strings.TrimSpace(term)
	if len(term) < MinSearchLength {
		return nil, nil
	}

	meds, err := s.repo.Find(ctx, term, region)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(term)
	results := make([]*SearchResult, 0, len(meds))
	for _, m := range meds {
		results = append(results, &SearchResult{
			Medication:  m,
			DisplayName: m.DisplayName(region),
			Strengths:   m.StrengthsFor(region),
			Schedule:    m.ScheduleFor(region),
			rank:        rankMatch(m, lower),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].rank != results[j].rank {
			return results[i].rank < results[j].rank
		}
		return results[i].Medication.Name < results[j].Medication.Name
	})

	if len(results) > MaxSearchResults {
		results = results[:MaxSearchResults]
	}
	return results, nil
}

const (
	rankExact = iota
	rankPrefix
	rankSubstring
)

func rankMatch(m *Medication, lowerTerm string) int {
	best := rankSubstring
	for _, name := range []string{m.Name, m.GenericName, m.BrandName} {
		if name == "" {
			continue
		}
		ln := strings.ToLower(name)
		switch {
		case ln == lowerTerm:
			return rankExact
		case strings.HasPrefix(ln, lowerTerm):
			best = rankPrefix
		}
	}
	return best
}
