package policy

import (
	"testing"

	"github.com/psychrx/go-rxguard/internal/domain/catalog"
)

func usConfig(epcs bool) *Config {
	return &Config{
		Region: catalog.RegionUS,
		RefillCeilings: map[string]int{
			ScheduleIII: 5,
			ScheduleIV:  5,
			ScheduleV:   5,
		},
		DefaultRefillCeiling:  5,
		AdvisoryRefillCeiling: 3,
		SupportsEPCS:          epcs,
		RequiredIdentifiers:   []IdentifierField{IdentifierDEA, IdentifierNPI},
	}
}

func trConfig() *Config {
	return &Config{
		Region:               catalog.RegionTR,
		RefillCeilings:       map[string]int{ScheduleControlled: 3},
		DefaultRefillCeiling: 5,
		SupportsEPCS:         true,
		RequiredIdentifiers:  []IdentifierField{IdentifierLicense},
	}
}

func scheduledMed(region catalog.Region, schedule string) *catalog.Medication {
	return &catalog.Medication{
		ID:        "med-test",
		Name:      "Testine",
		Schedules: map[catalog.Region]string{region: schedule},
	}
}

func TestScheduleIIsNotPrescribable(t *testing.T) {
	p := New(usConfig(false))
	med := scheduledMed(catalog.RegionUS, ScheduleI)

	info := p.ControlledSubstanceInfo(med)
	if info == nil {
		t.Fatal("expected schedule info")
	}
	if info.Prescribable {
		t.Error("schedule I must not be prescribable")
	}
	if info.MaxRefills != 0 {
		t.Errorf("schedule I refills: expected 0, got %d", info.MaxRefills)
	}
}

func TestScheduleIIZeroRefillsAndPaperFallback(t *testing.T) {
	med := scheduledMed(catalog.RegionUS, ScheduleII)

	info := New(usConfig(false)).ControlledSubstanceInfo(med)
	if info == nil {
		t.Fatal("expected schedule info")
	}
	if !info.Prescribable {
		t.Error("schedule II is prescribable")
	}
	if info.MaxRefills != 0 {
		t.Errorf("schedule II refills: expected 0, got %d", info.MaxRefills)
	}
	if !info.PaperOnly {
		t.Error("schedule II without EPCS support must be paper-only")
	}

	withEPCS := New(usConfig(true)).ControlledSubstanceInfo(med)
	if withEPCS.PaperOnly {
		t.Error("schedule II with EPCS support must not be paper-only")
	}
}

func TestScheduleIIZeroRefillsIgnoresConfig(t *testing.T) {
	cfg := usConfig(false)
	cfg.RefillCeilings[ScheduleII] = 5
	p := New(cfg)

	if got := p.MaxRefills(scheduledMed(catalog.RegionUS, ScheduleII)); got != 0 {
		t.Errorf("schedule II ceiling must be forced to 0, got %d", got)
	}
}

func TestControlledCeilingFromConfig(t *testing.T) {
	p := New(trConfig())
	med := scheduledMed(catalog.RegionTR, ScheduleControlled)

	if got := p.MaxRefills(med); got != 3 {
		t.Errorf("controlled ceiling: expected 3, got %d", got)
	}
	info := p.ControlledSubstanceInfo(med)
	if info == nil {
		t.Fatal("expected schedule info")
	}
	if !info.Prescribable || info.PaperOnly {
		t.Errorf("non-US controlled class must stay prescribable and electronic: %+v", info)
	}
}

func TestUnscheduledMedUsesDefaultCeiling(t *testing.T) {
	p := New(usConfig(false))
	med := &catalog.Medication{ID: "med-plain", Name: "Plainol"}

	if got := p.MaxRefills(med); got != 5 {
		t.Errorf("expected default ceiling 5, got %d", got)
	}
	if info := p.ControlledSubstanceInfo(med); info != nil {
		t.Errorf("unscheduled med must have no schedule info, got %+v", info)
	}
}

func TestClampRefills(t *testing.T) {
	p := New(usConfig(false))
	scheduleII := scheduledMed(catalog.RegionUS, ScheduleII)
	plain := &catalog.Medication{ID: "med-plain", Name: "Plainol"}

	cases := []struct {
		name    string
		current int
		med     *catalog.Medication
		want    int
	}{
		{"within ceiling", 3, plain, 3},
		{"above ceiling", 9, plain, 5},
		{"negative", -1, plain, 0},
		{"reclamped on schedule II", 5, scheduleII, 0},
		{"no medication", 9, nil, 5},
	}
	for _, tc := range cases {
		if got := p.ClampRefills(tc.current, tc.med); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}
