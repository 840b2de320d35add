package effects

import (
	"fmt"
	"math"
)

const maxSaturation = 10.0

// Saturator applies the bounded nonlinearity tanh(x·(1+k))/(1+k).
// Peaks are soft-clipped while near-silence passes through almost
// linearly, since tanh(x) ≈ x for small x.
type Saturator struct {
	amount float64
	drive  float64
}

// NewSaturator creates a saturator with amount k. Range: [0, 10].
func NewSaturator(amount float64) (*Saturator, error) {
	if amount < 0 || amount > maxSaturation || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, fmt.Errorf("saturation amount must be in [0, %g]: %f", maxSaturation, amount)
	}
	return &Saturator{amount: amount, drive: 1 + amount}, nil
}

// ProcessSample soft-clips one sample.
func (s *Saturator) ProcessSample(input float64) float64 {
	return math.Tanh(input*s.drive) / s.drive
}

// ProcessInPlace soft-clips buf in place.
func (s *Saturator) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = s.ProcessSample(buf[i])
	}
}

// Amount returns the saturation amount.
func (s *Saturator) Amount() float64 { return s.amount }
