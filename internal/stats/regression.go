package stats

import (
	"errors"
	"math"

	"github.com/estimatelens/estimatelens/pkg/types"
)

// ErrNoTrend is returned when no line can be fitted: fewer than two distinct
// points, or every point shares one x value.
var ErrNoTrend = errors.New("stats: no trend available")

// displayPadding extends the drawn line past the observed x range on each side.
const displayPadding = 0.10

// Point is one (estimate, hours) observation.
type Point struct {
	X float64 // estimate
	Y float64 // actual hours
}

// Trend is an ordinary least-squares fit y = Slope*x + Intercept.
type Trend struct {
	Slope     float64
	Intercept float64
	N         int
}

// At evaluates the fitted line at x.
func (t Trend) At(x float64) float64 { return t.Slope*x + t.Intercept }

// Segment is the drawn extent of a trend line.
type Segment struct {
	X0, Y0 float64
	X1, Y1 float64
}

// Points returns one point per grouped record, in input order.
func Points(records []types.Record) []Point {
	out := make([]Point, 0, len(records))
	for _, r := range records {
		if r.Grouped() {
			out = append(out, Point{X: r.Estimate, Y: r.ActualHours})
		}
	}
	return out
}

// Regress fits OLS over points using the closed form
//
//	slope     = (n·Σxy − Σx·Σy) / (n·Σx² − (Σx)²)
//	intercept = (Σy − slope·Σx) / n
//
// Every point counts once; nothing is pre-aggregated per group.
func Regress(points []Point) (Trend, error) {
	if distinct(points) < 2 {
		return Trend{}, ErrNoTrend
	}

	n := float64(len(points))
	var sumX, sumY, sumXY, sumX2 float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumX2 += p.X * p.X
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return Trend{}, ErrNoTrend
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n
	if math.IsNaN(slope) || math.IsInf(slope, 0) || math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return Trend{}, ErrNoTrend
	}
	return Trend{Slope: slope, Intercept: intercept, N: len(points)}, nil
}

// DisplaySegment returns the line drawn between the observed min and max x,
// each extended by 10% of the range, with x never below zero.
func DisplaySegment(t Trend, points []Point) Segment {
	if len(points) == 0 {
		return Segment{}
	}
	minX, maxX := points[0].X, points[0].X
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
	}
	pad := (maxX - minX) * displayPadding
	x0 := math.Max(0, minX-pad)
	x1 := maxX + pad
	return Segment{X0: x0, Y0: t.At(x0), X1: x1, Y1: t.At(x1)}
}

func distinct(points []Point) int {
	seen := make(map[Point]struct{}, len(points))
	for _, p := range points {
		seen[p] = struct{}{}
		if len(seen) >= 2 {
			return 2
		}
	}
	return len(seen)
}
