package stats

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/estimatelens/estimatelens/pkg/types"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func r(est, hrs float64) types.Record {
	return types.Record{ID: "x", Estimate: est, ActualHours: hrs, UpdatedAt: time.Unix(0, 0)}
}

// --- grouping ---------------------------------------------------------------

func TestGroupByEstimate(t *testing.T) {
	recs := []types.Record{r(3, 9), r(1, 4), r(1, 2), r(0, 5), r(2, 0), r(1, 3), r(0.5, 1)}
	got := GroupByEstimate(recs)

	want := []Group{
		{Estimate: 0.5, Hours: []float64{1}},
		{Estimate: 1, Hours: []float64{2, 3, 4}},
		{Estimate: 3, Hours: []float64{9}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GroupByEstimate = %+v, want %+v", got, want)
	}
}

// --- boxplot ----------------------------------------------------------------

func TestBoxplot_NearestRank(t *testing.T) {
	tests := []struct {
		name        string
		hours       []float64
		q1, med, q3 float64
	}{
		{"n=1", []float64{7}, 7, 7, 7},
		{"n=2", []float64{1, 2}, 1, 2, 2},                           // idx 0,1,1
		{"n=3", []float64{2, 3, 4}, 2, 3, 4},                        // idx 0,1,2
		{"n=4", []float64{1, 2, 3, 4}, 2, 3, 4},                     // idx 1,2,3
		{"n=5", []float64{1, 2, 3, 4, 5}, 2, 3, 4},                  // idx 1,2,3
		{"n=10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 3, 6, 8}, // idx 2,5,7
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Boxplot(tc.hours)
			if err != nil {
				t.Fatalf("Boxplot() error = %v", err)
			}
			if b.Q1 != tc.q1 || b.Median != tc.med || b.Q3 != tc.q3 {
				t.Errorf("q1/median/q3 = %v/%v/%v, want %v/%v/%v", b.Q1, b.Median, b.Q3, tc.q1, tc.med, tc.q3)
			}
			n := len(tc.hours)
			if b.Q1 != tc.hours[n*25/100] || b.Median != tc.hours[n/2] || b.Q3 != tc.hours[n*75/100] {
				t.Error("quartiles do not sit at floor(n*p) indices")
			}
		})
	}
}

func TestBoxplot_WorkedExample(t *testing.T) {
	b, err := Boxplot([]float64{2, 3, 4})
	if err != nil {
		t.Fatalf("Boxplot() error = %v", err)
	}
	want := Box{
		Count: 3, Min: 2, Max: 4,
		Q1: 2, Median: 3, Q3: 4, IQR: 2,
		LowerWhisker: 2, UpperWhisker: 4,
		Outliers: []float64{},
		Mean:     3,
		StdDev:   math.Sqrt(2.0 / 3.0),
	}
	if !almostEqual(b.StdDev, want.StdDev, 1e-12) {
		t.Errorf("StdDev = %v, want %v", b.StdDev, want.StdDev)
	}
	b.StdDev = want.StdDev
	if !reflect.DeepEqual(b, want) {
		t.Errorf("Boxplot = %+v, want %+v", b, want)
	}
}

func TestBoxplot_SingleValue(t *testing.T) {
	b, _ := Boxplot([]float64{4})
	if b.IQR != 0 || len(b.Outliers) != 0 || b.LowerWhisker != 4 || b.UpperWhisker != 4 {
		t.Errorf("degenerate box = %+v", b)
	}
}

func TestBoxplot_Outliers(t *testing.T) {
	hours := []float64{1, 2, 2, 3, 3, 3, 4, 4, 5, 40}
	b, err := Boxplot(hours)
	if err != nil {
		t.Fatalf("Boxplot() error = %v", err)
	}
	// q1=h[2]=2, q3=h[7]=4, IQR=2, upper fence 7 -> whisker 7, 40 is out.
	if b.UpperWhisker != 7 {
		t.Errorf("UpperWhisker = %v, want 7", b.UpperWhisker)
	}
	if !reflect.DeepEqual(b.Outliers, []float64{40}) {
		t.Errorf("Outliers = %v, want [40]", b.Outliers)
	}
}

func TestBoxplot_Invariants(t *testing.T) {
	samples := [][]float64{
		{1},
		{1, 100},
		{0.5, 0.5, 0.5, 9},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 60, 61},
		{3, 3, 3, 3, 3, 3, 3, 3, 3, 50},
		{0.1, 10, 20, 30, 40, 50, 60, 70, 80, 90, 400},
	}
	for _, hours := range samples {
		b, err := Boxplot(hours)
		if err != nil {
			t.Fatalf("Boxplot(%v) error = %v", hours, err)
		}
		if b.LowerWhisker < b.Min || b.UpperWhisker > b.Max {
			t.Errorf("%v: whiskers [%v,%v] escape data range [%v,%v]", hours, b.LowerWhisker, b.UpperWhisker, b.Min, b.Max)
		}
		out := make(map[float64]int)
		for _, o := range b.Outliers {
			out[o]++
			if o >= b.LowerWhisker && o <= b.UpperWhisker {
				t.Errorf("%v: outlier %v inside whiskers", hours, o)
			}
		}
		for _, h := range hours {
			inside := h >= b.LowerWhisker && h <= b.UpperWhisker
			if !inside && out[h] == 0 {
				t.Errorf("%v: %v outside whiskers but not an outlier", hours, h)
			}
		}
	}
}

func TestBoxplot_Empty(t *testing.T) {
	if _, err := Boxplot(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

// --- regression -------------------------------------------------------------

func TestRegress_ExactLine(t *testing.T) {
	var pts []Point
	for _, x := range []float64{1, 2, 3, 5, 8} {
		pts = append(pts, Point{X: x, Y: 3*x + 2})
	}
	tr, err := Regress(pts)
	if err != nil {
		t.Fatalf("Regress() error = %v", err)
	}
	if !almostEqual(tr.Slope, 3, 1e-6) || !almostEqual(tr.Intercept, 2, 1e-6) {
		t.Errorf("fit = %+v, want slope 3 intercept 2", tr)
	}
	if tr.N != 5 {
		t.Errorf("N = %d, want 5", tr.N)
	}
}

func TestRegress_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
	}{
		{"empty", nil},
		{"single", []Point{{1, 2}}},
		{"duplicates only", []Point{{1, 2}, {1, 2}, {1, 2}}},
		{"zero x variance", []Point{{2, 1}, {2, 5}, {2, 9}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Regress(tc.pts); !errors.Is(err, ErrNoTrend) {
				t.Errorf("err = %v, want ErrNoTrend", err)
			}
		})
	}
}

func TestDisplaySegment(t *testing.T) {
	tr := Trend{Slope: 2, Intercept: 1}
	pts := []Point{{X: 1}, {X: 11}}
	seg := DisplaySegment(tr, pts)
	// range 10, pad 1 -> [0, 12]
	want := Segment{X0: 0, Y0: 1, X1: 12, Y1: 25}
	if seg != want {
		t.Errorf("segment = %+v, want %+v", seg, want)
	}

	seg = DisplaySegment(tr, []Point{{X: 0.5}, {X: 100}})
	if seg.X0 != 0 {
		t.Errorf("X0 = %v, want clamp to 0", seg.X0)
	}

	seg = DisplaySegment(tr, []Point{{X: 5}, {X: 15}})
	if seg.X0 != 4 || seg.X1 != 16 {
		t.Errorf("X0/X1 = %v/%v, want 4/16", seg.X0, seg.X1)
	}
}

// --- histogram --------------------------------------------------------------

func TestBucketIndex(t *testing.T) {
	tests := []struct {
		hours float64
		want  int
	}{
		{0, -1}, {-1, -1}, {0.1, 0}, {4.999, 0}, {5, 1}, {9.9, 1},
		{10, 2}, {20, 3}, {39.9, 3}, {40, 4}, {1000, 4},
	}
	for _, tc := range tests {
		if got := BucketIndex(tc.hours); got != tc.want {
			t.Errorf("BucketIndex(%v) = %d, want %d", tc.hours, got, tc.want)
		}
	}
}

func TestHistogram_WorkedExample(t *testing.T) {
	recs := []types.Record{r(1, 2), r(1, 3), r(1, 4), r(3, 9)}
	b := Histogram(recs)

	if got := b[0].Counts["1"]; got != 3 {
		t.Errorf("[0,5) est=1 = %d, want 3", got)
	}
	if got := b[1].Counts["3"]; got != 1 {
		t.Errorf("[5,10) est=3 = %d, want 1", got)
	}
	if !math.IsInf(b[len(b)-1].Max, 1) {
		t.Error("last bucket must be unbounded")
	}
	keys := SeriesKeys(recs, b)
	if !reflect.DeepEqual(keys, []string{"1", "3"}) {
		t.Errorf("SeriesKeys = %v, want [1 3]", keys)
	}
}

func TestHistogram_Completeness(t *testing.T) {
	recs := []types.Record{
		r(1, 2), r(2, 7), r(0, 11), r(5, 0), r(0, 55), r(8, 21), r(8, 39.5), r(0, 0),
	}
	b := Histogram(recs)

	var total, withEffort int
	for _, bk := range b {
		for _, c := range bk.Counts {
			total += c
		}
	}
	for _, rec := range recs {
		if rec.ActualHours > 0 {
			withEffort++
		}
	}
	if total != withEffort {
		t.Errorf("bucket total = %d, want %d", total, withEffort)
	}

	keys := SeriesKeys(recs, b)
	want := []string{"1", "2", "8", Ungrouped}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("SeriesKeys = %v, want %v", keys, want)
	}
}

// --- deviation --------------------------------------------------------------

func TestExpectedHoursPerPoint(t *testing.T) {
	groups := []Group{
		{Estimate: 1, Hours: []float64{2, 3, 4}},
		{Estimate: 3, Hours: []float64{9}},
	}
	got, ok := ExpectedHoursPerPoint(groups)
	// 18 hours / 6 points
	if !ok || got != 3 {
		t.Errorf("ExpectedHoursPerPoint = %v, %v; want 3, true", got, ok)
	}

	if _, ok := ExpectedHoursPerPoint(nil); ok {
		t.Error("no groups: expected ok=false")
	}
}

func TestDeviation(t *testing.T) {
	tests := []struct {
		name      string
		mean      float64
		est       float64
		perPoint  float64
		wantPct   float64
		wantClass Class
	}{
		{"exact", 3, 1, 3, 0, OnTarget},
		{"just under moderate", 11.4, 1, 10, 0.14, OnTarget},
		{"moderate boundary", 11.5, 1, 10, 0.15, Moderate},
		{"under by 20%", 8, 1, 10, 0.2, Moderate},
		{"high boundary", 13, 1, 10, 0.3, High},
		{"way over", 50, 2, 5, 4, High},
		{"zero expected", 3, 1, 0, 0, Undefined},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pct, class := Deviation(tc.mean, tc.est, tc.perPoint)
			if !almostEqual(pct, tc.wantPct, 1e-9) {
				t.Errorf("pct = %v, want %v", pct, tc.wantPct)
			}
			if class != tc.wantClass {
				t.Errorf("class = %q, want %q", class, tc.wantClass)
			}
		})
	}
}
