package stats

import (
	"errors"
	"math"

	mstats "github.com/montanaflynn/stats"
)

// ErrEmpty is returned when a statistic is requested over no values.
var ErrEmpty = errors.New("stats: no values")

// whiskerFactor is the Tukey fence multiplier.
const whiskerFactor = 1.5

// Box holds the boxplot statistics of one group.
type Box struct {
	Count        int
	Min          float64
	Max          float64
	Q1           float64
	Median       float64
	Q3           float64
	IQR          float64
	LowerWhisker float64
	UpperWhisker float64
	Outliers     []float64 // ascending; never nil
	Mean         float64
	StdDev       float64 // population standard deviation
}

// Boxplot computes nearest-rank boxplot statistics over hours, which must be
// sorted ascending (GroupByEstimate guarantees this).
func Boxplot(hours []float64) (Box, error) {
	n := len(hours)
	if n == 0 {
		return Box{}, ErrEmpty
	}

	b := Box{
		Count:  n,
		Min:    hours[0],
		Max:    hours[n-1],
		Q1:     hours[NearestRank(n, 0.25)],
		Median: hours[NearestRank(n, 0.50)],
		Q3:     hours[NearestRank(n, 0.75)],
	}
	b.IQR = b.Q3 - b.Q1
	b.LowerWhisker = math.Max(b.Min, b.Q1-whiskerFactor*b.IQR)
	b.UpperWhisker = math.Min(b.Max, b.Q3+whiskerFactor*b.IQR)

	b.Outliers = make([]float64, 0)
	for _, h := range hours {
		if h < b.LowerWhisker || h > b.UpperWhisker {
			b.Outliers = append(b.Outliers, h)
		}
	}

	mean, err := mstats.Mean(hours)
	if err != nil {
		return Box{}, err
	}
	sd, err := mstats.StandardDeviationPopulation(hours)
	if err != nil {
		return Box{}, err
	}
	b.Mean = mean
	b.StdDev = sd
	return b, nil
}

// NearestRank returns floor(n*p), the index used for the p-th quantile of n
// sorted values. p must be in [0, 1).
func NearestRank(n int, p float64) int {
	i := int(math.Floor(float64(n) * p))
	if i >= n {
		i = n - 1
	}
	return i
}
