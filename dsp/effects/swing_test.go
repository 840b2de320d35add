package effects

import "testing"

// Beat times in these tests are binary fractions so the sample index
// arithmetic stays exact.

func TestSwingShifter_DelaysOddBeat(t *testing.T) {
	grid := []float64{0.25, 0.5, 1.0}
	sw, err := NewSwingShifter(100, grid, 0.5)
	if err != nil {
		t.Fatalf("NewSwingShifter: %v", err)
	}

	chunk := ramp(100)
	sw.ProcessChunk(chunk, 0)

	// Beat 1 at 0.5s: gap 0.5s, shift 25 samples. Samples 75..99 now
	// repeat 50..74; everything before the shifted window, including
	// the even beat at 0.25s, is untouched.
	for i := 0; i < 75; i++ {
		if chunk[i] != float64(i) {
			t.Fatalf("chunk[%d]: got %g, want %d", i, chunk[i], i)
		}
	}
	for i := 75; i < 100; i++ {
		if chunk[i] != float64(i-25) {
			t.Fatalf("chunk[%d]: got %g, want %d", i, chunk[i], i-25)
		}
	}
}

func TestSwingShifter_OffsetChunkMatchesLocalResult(t *testing.T) {
	// Same beat pattern one second later, processed as the chunk that
	// starts at sample 100. The local result must be identical.
	grid := []float64{1.25, 1.5, 2.0}
	sw, err := NewSwingShifter(100, grid, 0.5)
	if err != nil {
		t.Fatalf("NewSwingShifter: %v", err)
	}

	chunk := ramp(100)
	sw.ProcessChunk(chunk, 100)

	for i := 0; i < 75; i++ {
		if chunk[i] != float64(i) {
			t.Fatalf("chunk[%d]: got %g, want %d", i, chunk[i], i)
		}
	}
	for i := 75; i < 100; i++ {
		if chunk[i] != float64(i-25) {
			t.Fatalf("chunk[%d]: got %g, want %d", i, chunk[i], i-25)
		}
	}
}

func TestSwingShifter_SkipsWindowBeyondChunk(t *testing.T) {
	// Beat 1 at 0.75s shifts by 25 samples; 75+25 lands on the chunk
	// end, so the beat is skipped and nothing moves.
	grid := []float64{0.25, 0.75, 1.25}
	sw, err := NewSwingShifter(100, grid, 0.5)
	if err != nil {
		t.Fatalf("NewSwingShifter: %v", err)
	}

	chunk := ramp(100)
	sw.ProcessChunk(chunk, 0)

	for i := range chunk {
		if chunk[i] != float64(i) {
			t.Fatalf("chunk[%d]: got %g, want %d", i, chunk[i], i)
		}
	}
}

func TestSwingShifter_ZeroAmountIsNoop(t *testing.T) {
	grid := []float64{0.25, 0.5, 1.0}
	sw, err := NewSwingShifter(100, grid, 0)
	if err != nil {
		t.Fatalf("NewSwingShifter: %v", err)
	}

	chunk := ramp(100)
	sw.ProcessChunk(chunk, 0)
	for i := range chunk {
		if chunk[i] != float64(i) {
			t.Fatalf("chunk[%d]: got %g, want %d", i, chunk[i], i)
		}
	}
}

func TestSwingShifter_TooFewBeatsIsNoop(t *testing.T) {
	sw, err := NewSwingShifter(100, []float64{0.5}, 0.5)
	if err != nil {
		t.Fatalf("NewSwingShifter: %v", err)
	}

	chunk := ramp(50)
	sw.ProcessChunk(chunk, 0)
	for i := range chunk {
		if chunk[i] != float64(i) {
			t.Fatalf("chunk[%d]: got %g, want %d", i, chunk[i], i)
		}
	}
}

func TestSwingShifter_BeatOutsideChunkIgnored(t *testing.T) {
	// The odd beat falls in the next chunk; this chunk is untouched.
	grid := []float64{0.25, 1.5, 2.0}
	sw, err := NewSwingShifter(100, grid, 0.5)
	if err != nil {
		t.Fatalf("NewSwingShifter: %v", err)
	}

	chunk := ramp(100)
	sw.ProcessChunk(chunk, 0)
	for i := range chunk {
		if chunk[i] != float64(i) {
			t.Fatalf("chunk[%d]: got %g, want %d", i, chunk[i], i)
		}
	}
}
