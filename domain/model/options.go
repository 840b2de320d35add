package model

import "time"

// ProcessingOptions holds the tunable parameters of both effect
// presets. The HTTP service always runs with defaults; the options
// exist for library and CLI callers.
type ProcessingOptions struct {
	// Raw-dynamics preset
	NoiseStd       float64       // analog noise floor σ
	Saturation     float64       // soft-clip amount k
	DynamicsRatio  float64       // |x| threshold as fraction of full scale
	DynamicsBoost  float64       // gain applied above the threshold
	TransientDelta float64       // envelope first-difference threshold
	TransientBoost float64       // gain applied on detected transients
	RoomDelay      time.Duration // early-reflection delay
	RoomGain       float64       // early-reflection attenuation
	RawTarget      float64       // normalization peak target

	// Lo-fi preset
	Swing       float64 // fraction of inter-beat duration shifted
	StretchRate float64 // per-chunk time-stretch rate
	LofiAmount  float64 // bit-reduction intensity, 0..1
	LofiTarget  float64 // normalization peak target

	// Beat tracking
	Tightness float64

	// Chunking, in whole seconds at the task sample rate
	RawChunkSeconds  int
	LofiChunkSeconds int

	// NoiseSeed fixes the RNG of every stochastic stage when non-zero
	NoiseSeed int64
}

// DefaultProcessingOptions returns the preset parameters the service
// runs with.
func DefaultProcessingOptions() *ProcessingOptions {
	return &ProcessingOptions{
		NoiseStd:       0.005,
		Saturation:     0.3,
		DynamicsRatio:  0.8,
		DynamicsBoost:  1.2,
		TransientDelta: 0.1,
		TransientBoost: 1.3,
		RoomDelay:      20 * time.Millisecond,
		RoomGain:       0.1,
		RawTarget:      0.9,

		Swing:       0.3,
		StretchRate: 0.98,
		LofiAmount:  0.4,
		LofiTarget:  0.95,

		Tightness: 100,

		RawChunkSeconds:  2,
		LofiChunkSeconds: 5,
	}
}
