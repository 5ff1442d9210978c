package environment

import (
	"gonum.org/v1/gonum/spatial/r1"
)

// IntervalLimit ends episodes whenever a single feature leaves an
// interval
type IntervalLimit struct {
	interval r1.Interval
}

// NewIntervalLimit creates and returns a new interval limit
func NewIntervalLimit(limit r1.Interval) IntervalLimit {
	return IntervalLimit{limit}
}

// End returns whether the feature value v lies outside the interval
func (i IntervalLimit) End(v float64) bool {
	return v > i.interval.Max || v < i.interval.Min
}

// Interval returns the interval of the limit
func (i IntervalLimit) Interval() r1.Interval {
	return i.interval
}
