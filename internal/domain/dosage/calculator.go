// Package dosage derives daily dosage and dispense quantity from strength,
// frequency, and duration.
package dosage

import (
	"math"
	"strconv"
	"strings"
)

// Frequency enumerates how often a medication is taken.
type Frequency string

const (
	OnceDaily       Frequency = "once_daily"
	TwiceDaily      Frequency = "twice_daily"
	ThreeTimesDaily Frequency = "three_times_daily"
	FourTimesDaily  Frequency = "four_times_daily"
	AsNeeded        Frequency = "as_needed"
)

// DosesPerDay returns the fixed number of daily doses for a frequency, or 0
// for as-needed and unknown codes.
func (f Frequency) DosesPerDay() int {
	switch f {
	case OnceDaily:
		return 1
	case TwiceDaily:
		return 2
	case ThreeTimesDaily:
		return 3
	case FourTimesDaily:
		return 4
	default:
		return 0
	}
}

// Label returns the human-readable frequency text used in sig derivation.
func (f Frequency) Label() string {
	switch f {
	case OnceDaily:
		return "once daily"
	case TwiceDaily:
		return "twice daily"
	case ThreeTimesDaily:
		return "three times daily"
	case FourTimesDaily:
		return "four times daily"
	case AsNeeded:
		return "as needed"
	default:
		return string(f)
	}
}

// Valid reports whether f is a known frequency code.
func (f Frequency) Valid() bool {
	switch f {
	case OnceDaily, TwiceDaily, ThreeTimesDaily, FourTimesDaily, AsNeeded:
		return true
	default:
		return false
	}
}

// Result is the advisory output of a dosage calculation. The user-entered
// quantity remains authoritative; callers replace it with
// RecommendedQuantity only at the moment duration is edited.
type Result struct {
	// DailyDosage is numericStrength × doses per day. Zero when AsNeeded.
	DailyDosage float64 `json:"daily_dosage"`
	TotalDoses  int     `json:"total_doses"`
	// RecommendedQuantity is the suggested dispense count.
	RecommendedQuantity int  `json:"recommended_quantity"`
	AsNeeded            bool `json:"as_needed,omitempty"`
}

// Calculate derives dosage figures from a strength string ("50mg"), a
// frequency code, and a duration in days. It returns nil when any input is
// missing or unusable; that means "not yet computable", not failure.
// As-needed dosing has no fixed daily dosage and yields only a one-dose-per-
// day quantity estimate over the duration.
func Calculate(strength string, frequency Frequency, durationDays int) *Result {
	if durationDays <= 0 || !frequency.Valid() {
		return nil
	}
	value, ok := parseStrength(strength)
	if !ok {
		return nil
	}

	if frequency == AsNeeded {
		return &Result{
			TotalDoses:          durationDays,
			RecommendedQuantity: durationDays,
			AsNeeded:            true,
		}
	}

	perDay := frequency.DosesPerDay()
	totalDoses := perDay * durationDays
	return &Result{
		DailyDosage:         value * float64(perDay),
		TotalDoses:          totalDoses,
		RecommendedQuantity: int(math.Ceil(float64(totalDoses))),
	}
}

// parseStrength extracts the leading numeric value from a strength string
// such as "50mg" or "0.5 mg".
func parseStrength(strength string) (float64, bool) {
	s := strings.TrimSpace(strength)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	value, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}
