package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/estimatelens/estimatelens/internal/compute"
	"github.com/estimatelens/estimatelens/internal/stats"
)

// Fields lists every numeric field a condition may reference.
var Fields = []string{
	"record_count",
	"skipped_count",
	"group_count",
	"high_deviation_groups",
	"moderate_deviation_groups",
	"undefined_groups",
	"on_target_pct",
	"trend_slope",
	"trend_intercept",
	"hours_per_point",
}

// condition is a parsed rule expression.
type condition struct {
	field     string
	op        string
	threshold float64
	// trend conditions compare availability instead of a number.
	trend string
}

// parseCondition parses "field op value".
func parseCondition(s string) (condition, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return condition{}, fmt.Errorf("condition %q: want \"field operator value\"", s)
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "trend" {
		if op != "==" && op != "!=" {
			return condition{}, fmt.Errorf("condition %q: trend supports == and != only", s)
		}
		if rhs != "none" && rhs != "available" {
			return condition{}, fmt.Errorf("condition %q: trend compares to none or available", s)
		}
		return condition{field: field, op: op, trend: rhs}, nil
	}

	known := false
	for _, f := range Fields {
		if f == field {
			known = true
			break
		}
	}
	if !known {
		return condition{}, fmt.Errorf("condition %q: unknown field %q", s, field)
	}
	switch op {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return condition{}, fmt.Errorf("condition %q: unknown operator %q", s, op)
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return condition{}, fmt.Errorf("condition %q: value: %w", s, err)
	}
	return condition{field: field, op: op, threshold: threshold}, nil
}

// eval tests the condition against d. Returns (fires, triggering value).
func (c condition) eval(d *compute.Dashboard) (bool, float64) {
	if c.field == "trend" {
		state := "none"
		if d.Trend.Available {
			state = "available"
		}
		if c.op == "==" {
			return state == c.trend, 0
		}
		return state != c.trend, 0
	}
	v, ok := numericField(c.field, d)
	if !ok {
		return false, 0
	}
	return compareFloat(v, c.op, c.threshold), v
}

// numericField maps a field name to its value in the dashboard. ok is false
// when the dashboard has no value for it.
func numericField(field string, d *compute.Dashboard) (float64, bool) {
	switch field {
	case "record_count":
		return float64(d.RecordCount), true
	case "skipped_count":
		return float64(d.SkippedCount), true
	case "group_count":
		return float64(len(d.Summaries)), true
	case "high_deviation_groups":
		return float64(countClass(d, stats.High)), true
	case "moderate_deviation_groups":
		return float64(countClass(d, stats.Moderate)), true
	case "undefined_groups":
		return float64(countClass(d, stats.Undefined)), true
	case "on_target_pct":
		classified := len(d.Summaries) - countClass(d, stats.Undefined)
		if classified == 0 {
			return 0, false
		}
		return float64(countClass(d, stats.OnTarget)) / float64(classified) * 100, true
	case "trend_slope":
		return d.Trend.Slope, d.Trend.Available
	case "trend_intercept":
		return d.Trend.Intercept, d.Trend.Available
	case "hours_per_point":
		if d.ExpectedHoursPerPoint == nil {
			return 0, false
		}
		return *d.ExpectedHoursPerPoint, true
	default:
		return 0, false
	}
}

func countClass(d *compute.Dashboard, c stats.Class) int {
	n := 0
	for _, s := range d.Summaries {
		if s.Classification == c {
			n++
		}
	}
	return n
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
