package stats

import (
	"sort"
	"strconv"

	"github.com/estimatelens/estimatelens/pkg/types"
)

// Group is every record sharing one exact estimate value.
type Group struct {
	Estimate float64
	Hours    []float64 // ascending
}

// Label formats the estimate for chart labels and series names ("1", "2.5").
func (g Group) Label() string { return FormatEstimate(g.Estimate) }

// Total returns the sum of hours in the group.
func (g Group) Total() float64 {
	var sum float64
	for _, h := range g.Hours {
		sum += h
	}
	return sum
}

// FormatEstimate renders an estimate with the shortest exact representation.
func FormatEstimate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// GroupByEstimate partitions the records that carry both an estimate and
// effort by exact estimate value. Groups are sorted ascending by estimate
// and each group's hours are sorted ascending.
func GroupByEstimate(records []types.Record) []Group {
	byEst := make(map[float64][]float64)
	for _, r := range records {
		if !r.Grouped() {
			continue
		}
		byEst[r.Estimate] = append(byEst[r.Estimate], r.ActualHours)
	}

	out := make([]Group, 0, len(byEst))
	for est, hours := range byEst {
		sort.Float64s(hours)
		out = append(out, Group{Estimate: est, Hours: hours})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Estimate < out[j].Estimate })
	return out
}
