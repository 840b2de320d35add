// Package stretch implements phase-vocoder time stretching for mono
// buffers.
package stretch

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

const (
	defaultFrameSize   = 1024
	defaultAnalysisHop = 256
	minRate            = 0.25
	maxRate            = 4.0
	identityEps        = 1e-9
	normFloor          = 1e-12
)

// Stretcher performs phase-vocoder time stretching. A rate below 1
// slows the audio down (output longer than input), a rate above 1
// speeds it up; pitch is preserved either way by propagating per-bin
// instantaneous frequencies between analysis frames.
//
// The stretcher is one-shot buffer oriented and not thread-safe.
type Stretcher struct {
	rate         float64
	frameSize    int
	analysisHop  int
	synthesisHop int

	plan *algofft.Plan[complex128]

	windowCoeffs []float64
	omega        []float64
	prevPhase    []float64
	sumPhase     []float64

	analysisSpectrum  []complex128
	synthesisSpectrum []complex128
	timeFrame         []complex128

	magnitudes []float64
	instFreqs  []float64
}

// NewStretcher creates a stretcher for the given rate. Range: [0.25, 4].
func NewStretcher(rate float64) (*Stretcher, error) {
	if !isFinitePositive(rate) || rate < minRate || rate > maxRate {
		return nil, fmt.Errorf("stretch rate must be in [%g, %g]: %f", minRate, maxRate, rate)
	}

	s := &Stretcher{
		rate:        rate,
		frameSize:   defaultFrameSize,
		analysisHop: defaultAnalysisHop,
	}
	s.updateSynthesisHop()

	if err := s.rebuildState(); err != nil {
		return nil, err
	}
	return s, nil
}

// Rate returns the stretch rate.
func (s *Stretcher) Rate() float64 { return s.rate }

// FrameSize returns the FFT frame size.
func (s *Stretcher) FrameSize() int { return s.frameSize }

// AnalysisHop returns the analysis hop size in samples.
func (s *Stretcher) AnalysisHop() int { return s.analysisHop }

// SynthesisHop returns the synthesis hop size in samples.
func (s *Stretcher) SynthesisHop() int { return s.synthesisHop }

// SetRate updates the stretch rate. Range: [0.25, 4].
func (s *Stretcher) SetRate(rate float64) error {
	if !isFinitePositive(rate) || rate < minRate || rate > maxRate {
		return fmt.Errorf("stretch rate must be in [%g, %g]: %f", minRate, maxRate, rate)
	}
	s.rate = rate
	s.updateSynthesisHop()
	return nil
}

// Reset clears phase tracking state.
func (s *Stretcher) Reset() {
	for i := range s.prevPhase {
		s.prevPhase[i] = 0
		s.sumPhase[i] = 0
	}
}

// OutputLen reports the output length Process produces for n input
// samples.
func (s *Stretcher) OutputLen(n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(n) / s.rate))
}

// Process stretches input and returns a new buffer of OutputLen(len)
// samples. The input is left untouched.
func (s *Stretcher) Process(input []float64) ([]float64, error) {
	if len(input) == 0 {
		return nil, nil
	}
	if math.Abs(s.rate-1) <= identityEps {
		out := make([]float64, len(input))
		copy(out, input)
		return out, nil
	}

	s.Reset()

	half := s.frameSize / 2
	frameCount := 1 + (len(input)-1)/s.analysisHop
	stretchedLen := (frameCount-1)*s.synthesisHop + s.frameSize
	stretched := make([]float64, stretchedLen)
	norm := make([]float64, stretchedLen)

	analysisHopF := float64(s.analysisHop)
	synthesisHopF := float64(s.synthesisHop)

	for frame := 0; frame < frameCount; frame++ {
		inPos := frame * s.analysisHop
		outPos := frame * s.synthesisHop

		for i := 0; i < s.frameSize; i++ {
			x := 0.0
			if idx := inPos + i; idx < len(input) {
				x = input[idx]
			}
			s.analysisSpectrum[i] = complex(x*s.windowCoeffs[i], 0)
		}

		if err := s.plan.Forward(s.analysisSpectrum, s.analysisSpectrum); err != nil {
			return nil, fmt.Errorf("stretch: forward FFT failed: %w", err)
		}

		// Magnitudes and instantaneous frequencies from the phase
		// delta against the previous analysis frame.
		for k := 0; k <= half; k++ {
			re := real(s.analysisSpectrum[k])
			im := imag(s.analysisSpectrum[k])
			s.magnitudes[k] = math.Hypot(re, im)
			phase := math.Atan2(im, re)

			delta := wrapPhase(phase - s.prevPhase[k] - s.omega[k]*analysisHopF)
			s.instFreqs[k] = s.omega[k] + delta/analysisHopF
			s.prevPhase[k] = phase
		}

		// Accumulate synthesis phase at the synthesis hop.
		for k := 0; k <= half; k++ {
			s.sumPhase[k] += s.instFreqs[k] * synthesisHopF
			s.synthesisSpectrum[k] = complex(
				s.magnitudes[k]*math.Cos(s.sumPhase[k]),
				s.magnitudes[k]*math.Sin(s.sumPhase[k]),
			)
		}

		// Mirror for a real-valued inverse transform.
		s.synthesisSpectrum[0] = complex(real(s.synthesisSpectrum[0]), 0)
		s.synthesisSpectrum[half] = complex(real(s.synthesisSpectrum[half]), 0)
		for k := 1; k < half; k++ {
			v := s.synthesisSpectrum[k]
			s.synthesisSpectrum[s.frameSize-k] = complex(real(v), -imag(v))
		}

		if err := s.plan.Inverse(s.timeFrame, s.synthesisSpectrum); err != nil {
			return nil, fmt.Errorf("stretch: inverse FFT failed: %w", err)
		}

		for i := 0; i < s.frameSize; i++ {
			idx := outPos + i
			w := s.windowCoeffs[i]
			stretched[idx] += real(s.timeFrame[i]) * w
			norm[idx] += w * w
		}
	}

	for i := range stretched {
		if norm[i] > normFloor {
			stretched[i] /= norm[i]
		}
	}

	return fitLength(stretched, s.OutputLen(len(input))), nil
}

func (s *Stretcher) rebuildState() error {
	plan, err := algofft.NewPlan64(s.frameSize)
	if err != nil {
		return fmt.Errorf("stretch: failed to create FFT plan: %w", err)
	}
	s.plan = plan

	s.windowCoeffs = hannPeriodic(s.frameSize)

	bins := s.frameSize/2 + 1
	s.omega = make([]float64, bins)
	for k := 0; k < bins; k++ {
		s.omega[k] = 2 * math.Pi * float64(k) / float64(s.frameSize)
	}

	s.prevPhase = make([]float64, bins)
	s.sumPhase = make([]float64, bins)
	s.magnitudes = make([]float64, bins)
	s.instFreqs = make([]float64, bins)

	s.analysisSpectrum = make([]complex128, s.frameSize)
	s.synthesisSpectrum = make([]complex128, s.frameSize)
	s.timeFrame = make([]complex128, s.frameSize)

	return nil
}

func (s *Stretcher) updateSynthesisHop() {
	h := int(math.Round(float64(s.analysisHop) / s.rate))
	if h < 1 {
		h = 1
	}
	s.synthesisHop = h
}

// hannPeriodic returns periodic Hann window coefficients.
func hannPeriodic(size int) []float64 {
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size)))
	}
	return coeffs
}

func fitLength(in []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, in)
	return out
}

func wrapPhase(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
