// Package beat implements onset-driven tempo estimation and beat
// tracking for mono buffers.
package beat

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

const (
	defaultFrameSize = 2048
	defaultHopSize   = 512

	minTightness = 1.0
	maxTightness = 1000.0

	minBPM     = 30.0
	maxBPM     = 240.0
	priorBPM   = 120.0
	silenceEps = 1e-12
)

// Grid holds the estimated tempo and the ordered beat onset times in
// seconds. It is computed once over a whole track and then consumed
// read-only by per-chunk stages.
type Grid struct {
	BPM   float64
	Beats []float64
}

// Tracker detects beats from a spectral-flux onset envelope: an STFT
// over the track yields per-frame onset strength, autocorrelation of
// that envelope yields the tempo, and beats are picked by stepping at
// the beat period while snapping to local onset peaks.
//
// Tightness controls the snap window: lower values search wider around
// each predicted beat, trading grid precision for tolerance of sloppy
// timing.
type Tracker struct {
	rate      int
	frameSize int
	hopSize   int
	tightness float64

	plan         *algofft.Plan[complex128]
	windowCoeffs []float64
	frame        []complex128
	re           []float64
	im           []float64
	mag          []float64
	prevMag      []float64
}

// NewTracker creates a tracker at the given sample rate. Tightness
// range: [1, 1000].
func NewTracker(rate int, tightness float64) (*Tracker, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("tracker sample rate must be > 0: %d", rate)
	}
	if tightness < minTightness || tightness > maxTightness || math.IsNaN(tightness) {
		return nil, fmt.Errorf("tracker tightness must be in [%g, %g]: %f",
			minTightness, maxTightness, tightness)
	}

	plan, err := algofft.NewPlan64(defaultFrameSize)
	if err != nil {
		return nil, fmt.Errorf("tracker: failed to create FFT plan: %w", err)
	}

	bins := defaultFrameSize/2 + 1
	t := &Tracker{
		rate:         rate,
		frameSize:    defaultFrameSize,
		hopSize:      defaultHopSize,
		tightness:    tightness,
		plan:         plan,
		windowCoeffs: hannPeriodic(defaultFrameSize),
		frame:        make([]complex128, defaultFrameSize),
		re:           make([]float64, bins),
		im:           make([]float64, bins),
		mag:          make([]float64, bins),
		prevMag:      make([]float64, bins),
	}
	return t, nil
}

// Tightness returns the snap tightness.
func (t *Tracker) Tightness() float64 { return t.tightness }

// Track analyzes samples and returns the beat grid. Tracks too short
// or too quiet to carry a pulse yield an empty grid, never an error.
func (t *Tracker) Track(samples []float64) (*Grid, error) {
	env, err := t.onsetEnvelope(samples)
	if err != nil {
		return nil, err
	}
	if len(env) == 0 || vecmath.MaxAbs(env) <= silenceEps {
		return &Grid{}, nil
	}

	period := t.estimatePeriod(env)
	if period <= 0 {
		return &Grid{}, nil
	}

	frames := t.pickBeats(env, period)
	beats := make([]float64, len(frames))
	for i, f := range frames {
		beats[i] = float64(f*t.hopSize) / float64(t.rate)
	}

	return &Grid{
		BPM:   60 * float64(t.rate) / (float64(t.hopSize) * float64(period)),
		Beats: beats,
	}, nil
}

// onsetEnvelope computes half-wave rectified spectral flux per frame.
func (t *Tracker) onsetEnvelope(samples []float64) ([]float64, error) {
	if len(samples) < t.frameSize {
		return nil, nil
	}
	frameCount := 1 + (len(samples)-t.frameSize)/t.hopSize
	env := make([]float64, frameCount)

	half := t.frameSize / 2
	for i := range t.prevMag {
		t.prevMag[i] = 0
	}

	for f := 0; f < frameCount; f++ {
		pos := f * t.hopSize
		for i := 0; i < t.frameSize; i++ {
			t.frame[i] = complex(samples[pos+i]*t.windowCoeffs[i], 0)
		}

		if err := t.plan.Forward(t.frame, t.frame); err != nil {
			return nil, fmt.Errorf("tracker: forward FFT failed: %w", err)
		}

		for k := 0; k <= half; k++ {
			t.re[k] = real(t.frame[k])
			t.im[k] = imag(t.frame[k])
		}
		vecmath.Magnitude(t.mag, t.re, t.im)

		flux := 0.0
		for k := 0; k <= half; k++ {
			if d := t.mag[k] - t.prevMag[k]; d > 0 {
				flux += d
			}
		}
		env[f] = flux
		t.mag, t.prevMag = t.prevMag, t.mag
	}

	// The first frame's flux is its full spectrum against silence;
	// zero it so the track start is not mistaken for an onset.
	env[0] = 0
	return env, nil
}

// estimatePeriod picks the beat period in frames by autocorrelating
// the onset envelope, weighted toward a moderate tempo.
func (t *Tracker) estimatePeriod(env []float64) int {
	framesPerSecond := float64(t.rate) / float64(t.hopSize)
	lagMin := int(60 * framesPerSecond / maxBPM)
	if lagMin < 1 {
		lagMin = 1
	}
	lagMax := int(60 * framesPerSecond / minBPM)
	if lagMax > len(env)-1 {
		lagMax = len(env) - 1
	}
	if lagMax <= lagMin {
		return 0
	}

	bestLag := 0
	bestScore := 0.0
	for lag := lagMin; lag <= lagMax; lag++ {
		r := vecmath.DotProduct(env[lag:], env[:len(env)-lag])
		bpm := 60 * framesPerSecond / float64(lag)
		octaves := math.Log2(bpm / priorBPM)
		score := r * math.Exp(-0.5*octaves*octaves)
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	return bestLag
}

// pickBeats walks the envelope at the beat period, snapping each
// predicted beat to the strongest onset within the tightness window.
func (t *Tracker) pickBeats(env []float64, period int) []int {
	radius := int(float64(period) / math.Sqrt(t.tightness))
	if radius < 1 {
		radius = 1
	}
	if radius > period/2 {
		radius = period / 2
	}

	first := period
	if first > len(env) {
		first = len(env)
	}
	p := argMax(env, 0, first)

	beats := []int{p}
	for {
		next := p + period
		if next >= len(env) {
			break
		}
		lo := next - radius
		if lo <= p {
			lo = p + 1
		}
		hi := next + radius + 1
		if hi > len(env) {
			hi = len(env)
		}
		p = argMax(env, lo, hi)
		beats = append(beats, p)
	}
	return beats
}

func argMax(x []float64, lo, hi int) int {
	best := lo
	for i := lo + 1; i < hi; i++ {
		if x[i] > x[best] {
			best = i
		}
	}
	return best
}

func hannPeriodic(size int) []float64 {
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size)))
	}
	return coeffs
}
