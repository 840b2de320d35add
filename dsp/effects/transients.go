package effects

import (
	"fmt"
	"math"
)

// TransientEnhancer emphasizes attack transients: where the first
// difference of the absolute-value envelope exceeds delta, the sample
// is boosted. The first sample of a buffer is its own reference, so
// its difference is zero and it is never boosted.
type TransientEnhancer struct {
	delta float64
	boost float64
}

// NewTransientEnhancer creates a transient enhancer. Ranges:
// delta (0, 1], boost [1, 10].
func NewTransientEnhancer(delta, boost float64) (*TransientEnhancer, error) {
	if delta <= 0 || delta > 1 || math.IsNaN(delta) {
		return nil, fmt.Errorf("transient delta must be in (0, 1]: %f", delta)
	}
	if boost < minExpanderBoost || boost > maxExpanderBoost || math.IsNaN(boost) {
		return nil, fmt.Errorf("transient boost must be in [%g, %g]: %f",
			minExpanderBoost, maxExpanderBoost, boost)
	}
	return &TransientEnhancer{delta: delta, boost: boost}, nil
}

// ProcessInPlace enhances transients across buf in place. Envelope
// differences are taken against the unboosted signal.
func (t *TransientEnhancer) ProcessInPlace(buf []float64) {
	if len(buf) == 0 {
		return
	}
	prev := math.Abs(buf[0])
	for i := range buf {
		env := math.Abs(buf[i])
		if env-prev > t.delta {
			buf[i] *= t.boost
		}
		prev = env
	}
}

// Delta returns the envelope difference threshold.
func (t *TransientEnhancer) Delta() float64 { return t.delta }

// Boost returns the transient gain.
func (t *TransientEnhancer) Boost() float64 { return t.boost }
