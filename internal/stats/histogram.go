package stats

import (
	"math"
	"sort"

	"github.com/estimatelens/estimatelens/pkg/types"
)

// Ungrouped is the series key for records with effort but no usable estimate.
const Ungrouped = "ungrouped"

// Bucket is one effort range of the histogram.
type Bucket struct {
	Label  string
	Min    float64        // inclusive
	Max    float64        // exclusive; +Inf for the last bucket
	Counts map[string]int // series key -> count
}

// bucketEdges are the fixed lower bounds in hours; the last bucket is open.
var bucketEdges = []float64{0, 5, 10, 20, 40}

var bucketLabels = []string{"0-5h", "5-10h", "10-20h", "20-40h", "40h+"}

// Buckets returns a fresh, empty set of histogram buckets.
func Buckets() []Bucket {
	out := make([]Bucket, len(bucketEdges))
	for i, lo := range bucketEdges {
		hi := math.Inf(1)
		if i+1 < len(bucketEdges) {
			hi = bucketEdges[i+1]
		}
		out[i] = Bucket{Label: bucketLabels[i], Min: lo, Max: hi, Counts: map[string]int{}}
	}
	return out
}

// BucketIndex returns the bucket holding hours, or -1 for non-positive input.
func BucketIndex(hours float64) int {
	if hours <= 0 {
		return -1
	}
	for i := len(bucketEdges) - 1; i >= 0; i-- {
		if hours >= bucketEdges[i] {
			return i
		}
	}
	return -1
}

// SeriesKey returns the histogram series a record belongs to.
func SeriesKey(r types.Record) string {
	if r.Grouped() {
		return FormatEstimate(r.Estimate)
	}
	return Ungrouped
}

// Histogram counts every record with effort into the fixed buckets, split by
// estimate group plus the Ungrouped series.
func Histogram(records []types.Record) []Bucket {
	buckets := Buckets()
	for _, r := range records {
		i := BucketIndex(r.ActualHours)
		if i < 0 {
			continue
		}
		buckets[i].Counts[SeriesKey(r)]++
	}
	return buckets
}

// SeriesKeys lists the series with at least one non-zero bucket: estimate
// groups ascending, then Ungrouped.
func SeriesKeys(records []types.Record, buckets []Bucket) []string {
	var ests []float64
	seen := make(map[float64]bool)
	for _, r := range records {
		if r.Grouped() && !seen[r.Estimate] {
			seen[r.Estimate] = true
			ests = append(ests, r.Estimate)
		}
	}
	sort.Float64s(ests)

	nonZero := func(key string) bool {
		for _, b := range buckets {
			if b.Counts[key] > 0 {
				return true
			}
		}
		return false
	}

	keys := make([]string, 0, len(ests)+1)
	for _, e := range ests {
		if k := FormatEstimate(e); nonZero(k) {
			keys = append(keys, k)
		}
	}
	if nonZero(Ungrouped) {
		keys = append(keys, Ungrouped)
	}
	return keys
}
