package pipeline

import "fmt"

// Transform is a pure per-chunk transform. It receives a chunk and the
// chunk's absolute start offset in samples and returns the processed
// chunk, which may differ in length from its input. Transforms may
// mutate the chunk in place and return it.
type Transform func(chunk []float64, offset int) ([]float64, error)

// ChunkSamples converts a chunk duration in whole seconds to samples.
func ChunkSamples(seconds, rate int) int {
	return seconds * rate
}

// ApplyChunked splits samples into successive non-overlapping chunks of
// chunkLen samples (the final chunk may be shorter), applies transform
// to each in order, and returns the in-order concatenation of results.
//
// Chunks are capacity-limited subslices, so a transform can never reach
// into a neighboring chunk's data; stages that need whole-track state
// precompute it outside and close over it read-only. With a
// length-preserving transform the output length equals the input
// length; transforms may return other lengths and the concatenation
// reflects that.
func ApplyChunked(samples []float64, chunkLen int, transform Transform) ([]float64, error) {
	if chunkLen <= 0 {
		return nil, fmt.Errorf("chunk length must be > 0: %d", chunkLen)
	}
	if transform == nil {
		return nil, fmt.Errorf("chunk transform must not be nil")
	}

	out := make([]float64, 0, len(samples))
	for offset := 0; offset < len(samples); offset += chunkLen {
		end := offset + chunkLen
		if end > len(samples) {
			end = len(samples)
		}
		processed, err := transform(samples[offset:end:end], offset)
		if err != nil {
			return nil, fmt.Errorf("chunk at offset %d: %w", offset, err)
		}
		out = append(out, processed...)
	}
	return out, nil
}
