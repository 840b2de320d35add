package model

import "time"

// Fixed service constants. These are contract values, not tunables:
// uploads stream to disk in 1 MiB increments, decoded audio is truncated
// at ten minutes, and every pipeline runs mono at 44.1 kHz.
const (
	UploadChunkSize = 1 << 20
	MaxAudioSeconds = 600
	SampleRate      = 44100
)

// Buffer is a mono audio buffer: float samples plus their sample rate.
// A buffer is owned by exactly one task's pipeline; stages consume their
// input and hand ownership of the result to the next stage.
type Buffer struct {
	Samples []float64
	Rate    int
}

// NewBuffer wraps samples at the given rate.
func NewBuffer(samples []float64, rate int) *Buffer {
	return &Buffer{Samples: samples, Rate: rate}
}

func (b *Buffer) Len() int { return len(b.Samples) }

// Duration reports the buffer length as wall time.
func (b *Buffer) Duration() time.Duration {
	if b.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.Rate) * float64(time.Second))
}

// AudioMetadata holds probed metadata of an input file
type AudioMetadata struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
	Bitrate    int
	Codec      string
	Format     string
	Size       int64
}

// Result holds the outcome of one completed pipeline run
type Result struct {
	TaskID      string
	Style       Style
	InputPath   string
	OutputPath  string
	InputMeta   *AudioMetadata
	Samples     int
	Elapsed     time.Duration
	ProcessedAt time.Time
}
