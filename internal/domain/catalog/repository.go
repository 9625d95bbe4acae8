package catalog

import "context"

// Repository is the read-only medication reference source. Implementations
// match case-insensitively on canonical, generic, and brand names.
type Repository interface {
	Find(ctx context.Context, substring string, region Region) ([]*Medication, error)
}
