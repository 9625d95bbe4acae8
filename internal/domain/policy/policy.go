// Package policy enforces region-specific controlled-substance and refill
// rules. Numeric ceilings and schedule vocabularies are configuration data
// supplied by a ConfigRepository, never hard-coded here.
package policy

import (
	"context"
	"fmt"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
)

// IdentifierField names a prescriber regulatory identifier a region requires.
type IdentifierField string

const (
	IdentifierDEA     IdentifierField = "dea"
	IdentifierNPI     IdentifierField = "npi"
	IdentifierLicense IdentifierField = "license"
)

// US DEA schedule codes as they appear in catalog schedule data.
const (
	ScheduleI   = "I"
	ScheduleII  = "II"
	ScheduleIII = "III"
	ScheduleIV  = "IV"
	ScheduleV   = "V"

	// ScheduleControlled is the single controlled classification used by
	// non-US regions.
	ScheduleControlled = "controlled"
)

// Config holds one region's policy parameters.
type Config struct {
	Region catalog.Region `json:"region"`
	// RefillCeilings maps a schedule code to its maximum refill count.
	RefillCeilings map[string]int `json:"refill_ceilings"`
	// DefaultRefillCeiling applies to unscheduled medications.
	DefaultRefillCeiling int `json:"default_refill_ceiling"`
	// AdvisoryRefillCeiling is a non-binding recommended maximum; exceeding
	// it produces a warning, not a hard stop. Zero disables the warning.
	AdvisoryRefillCeiling int `json:"advisory_refill_ceiling,omitempty"`
	// SupportsEPCS reports whether electronic prescribing of controlled
	// substances is available in this region.
	SupportsEPCS bool `json:"supports_epcs"`
	// RequiredIdentifiers lists the prescriber identifier fields that must
	// be present before a prescription can be submitted.
	RequiredIdentifiers []IdentifierField `json:"required_identifiers"`
}

// ConfigRepository is the read-only region configuration source.
type ConfigRepository interface {
	Get(ctx context.Context, region catalog.Region) (*Config, error)
}

// ScheduleInfo describes how a scheduled medication must be handled.
type ScheduleInfo struct {
	Schedule     string `json:"schedule"`
	Prescribable bool   `json:"prescribable"`
	PaperOnly    bool   `json:"paper_only"`
	MaxRefills   int    `json:"max_refills"`
}

// Policy applies one region's rules. It is selected once per prescription
// session and passed explicitly; the region does not change mid-flow.
type Policy struct {
	cfg *Config
}

// New creates a policy from a region configuration.
func New(cfg *Config) *Policy {
	return &Policy{cfg: cfg}
}

// ForRegion loads the region's configuration and builds its policy. A missing
// region is a configuration error to report at session start.
func ForRegion(ctx context.Context, repo ConfigRepository, region catalog.Region) (*Policy, error) {
	cfg, err := repo.Get(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("load region config %s: %w", region, err)
	}
	return New(cfg), nil
}

// Region returns the region this policy applies to.
func (p *Policy) Region() catalog.Region { return p.cfg.Region }

// RequiredIdentifiers returns the prescriber identifier fields the region
// mandates.
func (p *Policy) RequiredIdentifiers() []IdentifierField {
	return p.cfg.RequiredIdentifiers
}

// AdvisoryRefillCeiling returns the non-binding recommended refill maximum,
// or 0 when the region defines none.
func (p *Policy) AdvisoryRefillCeiling() int {
	return p.cfg.AdvisoryRefillCeiling
}

// MaxRefills returns the refill ceiling for a medication in this region.
func (p *Policy) MaxRefills(med *catalog.Medication) int {
	if med == nil {
		return p.cfg.DefaultRefillCeiling
	}
	schedule := med.ScheduleFor(p.cfg.Region)
	if schedule == "" {
		return p.cfg.DefaultRefillCeiling
	}
	// Schedule I and II carry zero refills under US rules no matter what
	// the configuration says.
	if p.cfg.Region == catalog.RegionUS && (schedule == ScheduleI || schedule == ScheduleII) {
		return 0
	}
	if ceiling, ok := p.cfg.RefillCeilings[schedule]; ok {
		return ceiling
	}
	return p.cfg.DefaultRefillCeiling
}

// ClampRefills re-clamps a refill count after a medication change so a stale
// value never survives above the new medication's ceiling.
func (p *Policy) ClampRefills(current int, med *catalog.Medication) int {
	if current < 0 {
		return 0
	}
	if max := p.MaxRefills(med); current > max {
		return max
	}
	return current
}

// ControlledSubstanceInfo returns handling rules for a scheduled medication,
// or nil when the medication is not controlled in this region.
func (p *Policy) ControlledSubstanceInfo(med *catalog.Medication) *ScheduleInfo {
	if med == nil {
		return nil
	}
	schedule := med.ScheduleFor(p.cfg.Region)
	if schedule == "" {
		return nil
	}

	info := &ScheduleInfo{
		Schedule:     schedule,
		Prescribable: true,
		MaxRefills:   p.MaxRefills(med),
	}

	if p.cfg.Region == catalog.RegionUS {
		switch schedule {
		case ScheduleI:
			info.Prescribable = false
			info.MaxRefills = 0
		case ScheduleII:
			info.MaxRefills = 0
			info.PaperOnly = !p.cfg.SupportsEPCS
		}
	}
	return info
}
