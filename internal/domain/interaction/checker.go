package interaction

import (
	"context"
	"sort"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
)

// Repository is the read-only interaction reference source. Lookup is
// unordered: Lookup(a, b) and Lookup(b, a) return the same record. A nil
// record with a nil error means no known data for the pair, which is not the
// same as "no risk".
type Repository interface {
	Lookup(ctx context.Context, nameA, nameB string, region catalog.Region) (*DrugInteraction, error)
}

// Checker evaluates every unordered pair of selected medications against the
// interaction reference.
type Checker struct {
	repo Repository
}

// NewChecker creates a checker backed by the given reference source.
func NewChecker(repo Repository) *Checker {
	return &Checker{repo: repo}
}

// CheckAll returns all known interactions among the named medications, most
// severe first. Fewer than two names yields an empty result. The full
// pairwise set is recomputed on every call rather than cached across edits.
func (c *Checker) CheckAll(ctx context.Context, names []string, region catalog.Region) ([]*DrugInteraction, error) {
	if len(names) < 2 {
		return nil, nil
	}

	var found []*DrugInteraction
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			rec, err := c.repo.Lookup(ctx, names[i], names[j], region)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				found = append(found, rec)
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Severity.Rank() > found[j].Severity.Rank()
	})
	return found, nil
}

// HasContraindicated reports whether any interaction in the set is
// contraindicated. This is the sole interaction-based hard stop for
// prescription submission.
func HasContraindicated(interactions []*DrugInteraction) bool {
	for _, in := range interactions {
		if in.Severity == SeverityContraindicated {
			return true
		}
	}
	return false
}
