package postgres

import (
	"context"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/interaction"
	"github.com/psychrx/go-rxguard/pkg/circuitbreaker"
)

// GuardedInteractionStore wraps an interaction repository with a circuit
// breaker. Interaction lookups run on every medication-set change, so a
// degraded reference store must fail fast instead of stalling the session.
type GuardedInteractionStore struct {
	inner   interaction.Repository
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedInteractionStore wraps the given repository.
func NewGuardedInteractionStore(inner interaction.Repository, breaker *circuitbreaker.CircuitBreaker) *GuardedInteractionStore {
	return &GuardedInteractionStore{inner: inner, breaker: breaker}
}

// Lookup runs the inner lookup through the circuit breaker.
func (g *GuardedInteractionStore) Lookup(ctx context.Context, nameA, nameB string, region catalog.Region) (*interaction.DrugInteraction, error) {
	result, err := g.breaker.Execute(ctx, func() (interface{}, error) {
		return g.inner.Lookup(ctx, nameA, nameB, region)
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	rec, _ := result.(*interaction.DrugInteraction)
	return rec, nil
}
