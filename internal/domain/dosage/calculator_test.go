package dosage

import "testing"

func TestCalculateDailyDosage(t *testing.T) {
	result := Calculate("50mg", TwiceDaily, 10)
	if result == nil {
		t.Fatal("expected a result")
	}
	if result.DailyDosage != 100 {
		t.Errorf("daily dosage: expected 100, got %v", result.DailyDosage)
	}
	if result.TotalDoses != 20 {
		t.Errorf("total doses: expected 20, got %d", result.TotalDoses)
	}
	if result.RecommendedQuantity != 20 {
		t.Errorf("recommended quantity: expected 20, got %d", result.RecommendedQuantity)
	}
	if result.AsNeeded {
		t.Error("fixed frequency should not be flagged as-needed")
	}
}

func TestCalculateFractionalStrength(t *testing.T) {
	result := Calculate("0.5 mg", ThreeTimesDaily, 7)
	if result == nil {
		t.Fatal("expected a result")
	}
	if result.DailyDosage != 1.5 {
		t.Errorf("daily dosage: expected 1.5, got %v", result.DailyDosage)
	}
	if result.TotalDoses != 21 {
		t.Errorf("total doses: expected 21, got %d", result.TotalDoses)
	}
}

func TestCalculateReturnsNilOnMissingInputs(t *testing.T) {
	cases := []struct {
		name     string
		strength string
		freq     Frequency
		days     int
	}{
		{"no strength", "", TwiceDaily, 10},
		{"non-numeric strength", "mg", TwiceDaily, 10},
		{"zero strength", "0mg", TwiceDaily, 10},
		{"no frequency", "50mg", "", 10},
		{"unknown frequency", "50mg", "hourly", 10},
		{"zero duration", "50mg", TwiceDaily, 0},
		{"negative duration", "50mg", TwiceDaily, -3},
	}
	for _, tc := range cases {
		if got := Calculate(tc.strength, tc.freq, tc.days); got != nil {
			t.Errorf("%s: expected nil, got %+v", tc.name, got)
		}
	}
}

func TestCalculateAsNeeded(t *testing.T) {
	result := Calculate("1mg", AsNeeded, 14)
	if result == nil {
		t.Fatal("expected a result")
	}
	if !result.AsNeeded {
		t.Error("expected as-needed flag")
	}
	if result.DailyDosage != 0 {
		t.Errorf("as-needed has no fixed daily dosage, got %v", result.DailyDosage)
	}
	if result.RecommendedQuantity != 14 {
		t.Errorf("as-needed quantity: expected one per day estimate 14, got %d", result.RecommendedQuantity)
	}
}

func TestFrequencyDosesPerDay(t *testing.T) {
	cases := map[Frequency]int{
		OnceDaily:       1,
		TwiceDaily:      2,
		ThreeTimesDaily: 3,
		FourTimesDaily:  4,
		AsNeeded:        0,
		"bogus":         0,
	}
	for freq, want := range cases {
		if got := freq.DosesPerDay(); got != want {
			t.Errorf("%s: expected %d doses per day, got %d", freq, want, got)
		}
	}
}
