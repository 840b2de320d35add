package effects

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	crusherFullBits   = 16
	crusherBitRange   = 10    // bits removed at full intensity
	crusherNoiseScale = 0.005 // media noise σ per unit of intensity
)

// LofiCrusher quantizes samples to a reduced bit depth and overlays
// low-amplitude Gaussian noise, emulating worn playback media. The
// effective bit depth is 16 − round(10·amount), so the default
// intensity of 0.4 lands on 12 bits.
type LofiCrusher struct {
	amount      float64
	bitDepth    int
	quantLevels float64
	noiseStd    float64
	rng         *rand.Rand
}

// NewLofiCrusher creates a crusher with the given intensity in [0, 1].
// A non-zero seed makes the media noise deterministic.
func NewLofiCrusher(amount float64, seed int64) (*LofiCrusher, error) {
	if amount < 0 || amount > 1 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, fmt.Errorf("lofi amount must be in [0, 1]: %f", amount)
	}
	bits := crusherFullBits - int(math.Round(amount*crusherBitRange))
	return &LofiCrusher{
		amount:      amount,
		bitDepth:    bits,
		quantLevels: math.Exp2(float64(bits - 1)),
		noiseStd:    amount * crusherNoiseScale,
		rng:         newRand(seed),
	}, nil
}

// ProcessSample quantizes one sample and adds media noise.
func (lc *LofiCrusher) ProcessSample(input float64) float64 {
	out := math.Round(input*lc.quantLevels) / lc.quantLevels
	if lc.noiseStd > 0 {
		out += lc.rng.NormFloat64() * lc.noiseStd
	}
	return out
}

// ProcessInPlace applies the crusher to buf in place.
func (lc *LofiCrusher) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = lc.ProcessSample(buf[i])
	}
}

// Amount returns the crush intensity.
func (lc *LofiCrusher) Amount() float64 { return lc.amount }

// BitDepth returns the effective quantization bit depth.
func (lc *LofiCrusher) BitDepth() int { return lc.bitDepth }
