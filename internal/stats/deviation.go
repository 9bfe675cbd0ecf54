package stats

import "math"

// Class is the deviation classification of one estimate group.
type Class string

// Classification values, used for summary coloring.
const (
	OnTarget  Class = "on-target"
	Moderate  Class = "moderate-deviation"
	High      Class = "high-deviation"
	Undefined Class = "undefined"
)

// Thresholds on the fractional deviation from expected hours.
const (
	ThresholdModerate = 0.15
	ThresholdHigh     = 0.30
)

// ExpectedHoursPerPoint is the global ratio of logged hours to estimated
// points across every grouped record. ok is false when there are no points.
func ExpectedHoursPerPoint(groups []Group) (perPoint float64, ok bool) {
	var hours, points float64
	for _, g := range groups {
		hours += g.Total()
		points += g.Estimate * float64(len(g.Hours))
	}
	if points <= 0 {
		return 0, false
	}
	return hours / points, true
}

// Deviation compares a group's mean hours with estimate*perPoint.
//
//	pct = |mean - expected| / expected
//
// When expected is zero (or not finite) the result is (0, Undefined).
func Deviation(mean, estimate, perPoint float64) (pct float64, class Class) {
	expected := estimate * perPoint
	if expected == 0 || math.IsNaN(expected) || math.IsInf(expected, 0) {
		return 0, Undefined
	}
	pct = math.Abs(mean-expected) / expected
	return pct, classify(pct)
}

// classify maps a fractional deviation to a Class.
func classify(pct float64) Class {
	switch {
	case pct < ThresholdModerate:
		return OnTarget
	case pct < ThresholdHigh:
		return Moderate
	default:
		return High
	}
}
