package effects

import (
	"fmt"
	"math"
)

const maxSwingAmount = 0.9

// SwingShifter delays the audio at every odd-indexed beat by a
// fraction of the gap to the next beat. Even-indexed beats stay on the
// grid; the asymmetry between the two is what makes the result swing.
//
// The shifter works per chunk against absolute beat times, so chunks
// carry their start offset. The beat grid is read-only shared state,
// computed once over the whole track before chunking.
type SwingShifter struct {
	amount float64
	rate   int
	grid   []float64
}

// NewSwingShifter creates a swing stage over an ordered grid of beat
// onset times in seconds. Range: amount [0, 0.9].
func NewSwingShifter(rate int, grid []float64, amount float64) (*SwingShifter, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("swing sample rate must be > 0: %d", rate)
	}
	if amount < 0 || amount > maxSwingAmount || math.IsNaN(amount) {
		return nil, fmt.Errorf("swing amount must be in [0, %g]: %f", maxSwingAmount, amount)
	}
	return &SwingShifter{amount: amount, rate: rate, grid: grid}, nil
}

// ProcessChunk applies swing to chunk in place. offset is the chunk's
// absolute start position in samples. Beats whose shifted window would
// overflow the chunk are skipped, left unmodified; no index outside
// the chunk is ever touched.
func (s *SwingShifter) ProcessChunk(chunk []float64, offset int) {
	if s.amount == 0 || len(s.grid) < 2 || len(chunk) == 0 {
		return
	}
	rate := float64(s.rate)
	start := float64(offset) / rate
	end := start + float64(len(chunk))/rate

	// Odd-indexed beats that still have a successor.
	for i := 1; i < len(s.grid)-1; i += 2 {
		bt := s.grid[i]
		if bt < start || bt >= end {
			continue
		}
		gap := s.grid[i+1] - bt
		if gap <= 0 {
			continue
		}
		beatStart := int((bt - start) * rate)
		shift := int(s.amount * gap * rate)
		if shift <= 0 {
			continue
		}
		if beatStart < 0 || beatStart+shift >= len(chunk) {
			continue
		}
		span := beatStart + int(gap*rate)
		if span > len(chunk) {
			span = len(chunk)
		}
		// Delay the inter-beat audio by re-copying it forward in
		// place; the samples ahead of the shift keep their original
		// content.
		for j := span - 1; j >= beatStart+shift; j-- {
			chunk[j] = chunk[j-shift]
		}
	}
}

// Amount returns the swing amount.
func (s *SwingShifter) Amount() float64 { return s.amount }
