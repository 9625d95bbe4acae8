// Package catalog provides region-aware medication reference lookup.
package catalog

import (
	"fmt"
)

// Region identifies the regulatory region a prescription session runs under.
type Region string

const (
	RegionUS Region = "us"
	RegionEU Region = "eu"
	RegionTR Region = "tr"
)

// ParseRegion validates a region code. Unknown regions are a configuration
// error reported once at session start, never per keystroke.
func ParseRegion(code string) (Region, error) {
	switch Region(code) {
	case RegionUS, RegionEU, RegionTR:
		return Region(code), nil
	default:
		return "", fmt.Errorf("unknown region: %q", code)
	}
}

// Medication is an immutable catalog entry. Strengths, display names, and
// schedule codes vary by region; the zero-value region maps fall back to the
// canonical values.
type Medication struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	GenericName string              `json:"generic_name"`
	BrandName   string              `json:"brand_name,omitempty"`
	DosageForms []string            `json:"dosage_forms"`
	Strengths   map[Region][]string `json:"strengths"`
	Category    string              `json:"category"`
	Schedules   map[Region]string   `json:"schedules,omitempty"`
	LocalNames  map[Region]string   `json:"local_names,omitempty"`
	RequiresRx  bool                `json:"requires_rx"`
}

// DisplayName returns the region-localized name, falling back to the
// canonical name.
func (m *Medication) DisplayName(region Region) string {
	if name, ok := m.LocalNames[region]; ok && name != "" {
		return name
	}
	return m.Name
}

// StrengthsFor returns the region-specific strength list, falling back to the
// US list when the region has no dedicated entry.
func (m *Medication) StrengthsFor(region Region) []string {
	if s, ok := m.Strengths[region]; ok && len(s) > 0 {
		return s
	}
	return m.Strengths[RegionUS]
}

// ScheduleFor returns the region's schedule code for this medication, or ""
// when it is not scheduled in that region.
func (m *Medication) ScheduleFor(region Region) string {
	return m.Schedules[region]
}
