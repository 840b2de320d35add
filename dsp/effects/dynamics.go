package effects

import (
	"fmt"
	"math"
)

const (
	minExpanderBoost = 1.0
	maxExpanderBoost = 10.0
)

// Expander boosts samples whose magnitude exceeds a fraction of full
// scale. It deliberately reintroduces dynamic range that mastering
// compression removed, the opposite of a compressor.
type Expander struct {
	ratio float64
	boost float64
}

// NewExpander creates an expander that multiplies samples above
// ratio (of full scale) by boost. Ranges: ratio (0, 1], boost [1, 10].
func NewExpander(ratio, boost float64) (*Expander, error) {
	if ratio <= 0 || ratio > 1 || math.IsNaN(ratio) {
		return nil, fmt.Errorf("expander ratio must be in (0, 1]: %f", ratio)
	}
	if boost < minExpanderBoost || boost > maxExpanderBoost || math.IsNaN(boost) {
		return nil, fmt.Errorf("expander boost must be in [%g, %g]: %f",
			minExpanderBoost, maxExpanderBoost, boost)
	}
	return &Expander{ratio: ratio, boost: boost}, nil
}

// ProcessSample boosts one sample if it sits above the threshold.
func (e *Expander) ProcessSample(input float64) float64 {
	if math.Abs(input) > e.ratio {
		return input * e.boost
	}
	return input
}

// ProcessInPlace applies the expander to buf in place.
func (e *Expander) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = e.ProcessSample(buf[i])
	}
}

// Ratio returns the full-scale threshold ratio.
func (e *Expander) Ratio() float64 { return e.ratio }

// Boost returns the above-threshold gain.
func (e *Expander) Boost() float64 { return e.boost }
