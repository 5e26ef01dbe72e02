package pressure

import "math"

// Range is a running min/max window.
type Range struct {
	Min, Max float64
}

// NewRange returns an empty window.
func NewRange() Range {
	return Range{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Reset empties the window.
func (r *Range) Reset() { *r = NewRange() }

// Update widens the window to include v. NaN and infinities are ignored.
func (r *Range) Update(v float64) {
	if !finite(v) {
		return
	}
	r.Min = math.Min(r.Min, v)
	r.Max = math.Max(r.Max, v)
}

// Normalize maps v linearly into [0,1] against the window. An empty or
// degenerate window maps everything to 0.
func (r Range) Normalize(v float64) float64 {
	if !(r.Max > r.Min) {
		return 0
	}
	n := (v - r.Min) / (r.Max - r.Min)
	return math.Max(0, math.Min(1, n))
}

// UpdateAndNormalize is Update followed by Normalize.
func (r *Range) UpdateAndNormalize(v float64) float64 {
	r.Update(v)
	return r.Normalize(v)
}
