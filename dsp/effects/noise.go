package effects

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const maxNoiseStd = 1.0

// NoiseInjector adds independent Gaussian noise (mean 0) to every
// sample, simulating an analog noise floor.
type NoiseInjector struct {
	std float64
	rng *rand.Rand
}

// NewNoiseInjector creates a noise injector with the given standard
// deviation. Range: [0, 1]. A non-zero seed makes the noise stream
// deterministic.
func NewNoiseInjector(std float64, seed int64) (*NoiseInjector, error) {
	if std < 0 || std > maxNoiseStd || math.IsNaN(std) || math.IsInf(std, 0) {
		return nil, fmt.Errorf("noise std must be in [0, %g]: %f", maxNoiseStd, std)
	}
	return &NoiseInjector{std: std, rng: newRand(seed)}, nil
}

// ProcessSample adds one noise value to input.
func (n *NoiseInjector) ProcessSample(input float64) float64 {
	if n.std == 0 {
		return input
	}
	return input + n.rng.NormFloat64()*n.std
}

// ProcessInPlace adds noise to buf in place.
func (n *NoiseInjector) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = n.ProcessSample(buf[i])
	}
}

// Std returns the noise standard deviation.
func (n *NoiseInjector) Std() float64 { return n.std }
