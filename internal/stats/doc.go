// Package stats is the computational core: it groups records by estimate and
// derives boxplot, regression, histogram and deviation statistics.
//
// Quartiles use nearest-rank indexing on the ascending hours of a group:
//
//	q1     = hours[floor(n*0.25)]
//	median = hours[floor(n*0.50)]
//	q3     = hours[floor(n*0.75)]
//
// No interpolation is done. This differs from the linear-interpolation
// percentiles most libraries default to, and results must match it exactly.
// Whiskers are q1-1.5*IQR and q3+1.5*IQR clamped to the observed min and max.
//
// Regress fits ordinary least squares over every (estimate, hours) pair and
// returns ErrNoTrend for degenerate input rather than NaN.
//
// Histogram buckets are fixed effort ranges in hours:
// [0,5) [5,10) [10,20) [20,40) [40,∞).
//
// Deviation thresholds: OnTarget <15%, Moderate 15–30%, High ≥30%,
// Undefined when no expected hours can be derived.
package stats
