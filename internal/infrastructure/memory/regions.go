package memory

import (
	"context"
	"fmt"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
	"github.com/psychrx/go-rxguard/internal/domain/policy"
)

// RegionConfigStore is an in-memory policy.ConfigRepository.
type RegionConfigStore struct {
	configs map[catalog.Region]*policy.Config
}

// NewRegionConfigStore creates a store over the given configurations.
func NewRegionConfigStore(configs []*policy.Config) *RegionConfigStore {
	s := &RegionConfigStore{configs: make(map[catalog.Region]*policy.Config, len(configs))}
	for _, cfg := range configs {
		s.configs[cfg.Region] = cfg
	}
	return s
}

// Get returns the configuration for a region.
func (s *RegionConfigStore) Get(ctx context.Context, region catalog.Region) (*policy.Config, error) {
	cfg, ok := s.configs[region]
	if !ok {
		return nil, fmt.Errorf("no configuration for region: %s", region)
	}
	return cfg, nil
}

// DefaultRegionConfigs returns starter region policies. The numeric ceilings
// here are placeholders; integrators supply the real regulatory values.
func DefaultRegionConfigs() []*policy.Config {
	return []*policy.Config{
		{
			Region: catalog.RegionUS,
			RefillCeilings: map[string]int{
				policy.ScheduleIII: 5,
				policy.ScheduleIV:  5,
				policy.ScheduleV:   5,
			},
			DefaultRefillCeiling:  5,
			AdvisoryRefillCeiling: 3,
			SupportsEPCS:          false,
			RequiredIdentifiers:   []policy.IdentifierField{policy.IdentifierDEA, policy.IdentifierNPI},
		},
		{
			Region: catalog.RegionEU,
			RefillCeilings: map[string]int{
				policy.ScheduleControlled: 3,
			},
			DefaultRefillCeiling:  5,
			AdvisoryRefillCeiling: 3,
			SupportsEPCS:          true,
			RequiredIdentifiers:   []policy.IdentifierField{policy.IdentifierLicense},
		},
		{
			Region: catalog.RegionTR,
			RefillCeilings: map[string]int{
				policy.ScheduleControlled: 3,
			},
			DefaultRefillCeiling:  5,
			AdvisoryRefillCeiling: 3,
			SupportsEPCS:          true,
			RequiredIdentifiers:   []policy.IdentifierField{policy.IdentifierLicense},
		},
	}
}
