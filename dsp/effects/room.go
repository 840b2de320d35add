package effects

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-vecmath"
)

// RoomReflection mixes a single delayed, attenuated copy of the signal
// back onto itself: one early reflection rather than a full reverb.
// It operates on the whole buffer, not per chunk, so the reflection
// crosses chunk boundaries.
type RoomReflection struct {
	rate  int
	delay time.Duration
	gain  float64
}

// NewRoomReflection creates a reflection with the given delay and
// attenuation at the buffer's sample rate. Ranges: delay > 0,
// gain [0, 1].
func NewRoomReflection(rate int, delay time.Duration, gain float64) (*RoomReflection, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("room sample rate must be > 0: %d", rate)
	}
	if delay <= 0 {
		return nil, fmt.Errorf("room delay must be > 0: %v", delay)
	}
	if gain < 0 || gain > 1 || math.IsNaN(gain) {
		return nil, fmt.Errorf("room gain must be in [0, 1]: %f", gain)
	}
	return &RoomReflection{rate: rate, delay: delay, gain: gain}, nil
}

// ProcessInPlace adds the reflection to buf in place. Buffers shorter
// than the delay are left unchanged.
func (r *RoomReflection) ProcessInPlace(buf []float64) {
	d := int(float64(r.rate) * r.delay.Seconds())
	if d <= 0 || d >= len(buf) {
		return
	}
	// The reflection reads the dry signal, so it goes through a wet
	// scratch buffer instead of feeding back on itself.
	wet := make([]float64, len(buf))
	vecmath.ScaleBlock(wet[d:], buf[:len(buf)-d], r.gain)
	vecmath.AddBlockInPlace(buf, wet)
}

// Delay returns the reflection delay.
func (r *RoomReflection) Delay() time.Duration { return r.delay }

// Gain returns the reflection attenuation.
func (r *RoomReflection) Gain() float64 { return r.gain }
