package ports

import (
	"context"
	"io"
	"time"

	"github.com/stylusfm/stylus/domain/model"
)

// AudioDecoder turns stored uploads into mono processing buffers.
type AudioDecoder interface {
	// Decode reads path into a mono buffer at model.SampleRate,
	// truncated at model.MaxAudioSeconds.
	Decode(ctx context.Context, path string) (*model.Buffer, error)

	// Probe returns metadata about an audio file without decoding it
	Probe(ctx context.Context, path string) (*model.AudioMetadata, error)
}

// ArtifactStore abstracts the two task-scoped artifact namespaces:
// uploaded inputs and processed outputs. Artifact names are always
// prefixed by their task id, so prefix lookups identify a task's files.
type ArtifactStore interface {
	// SaveUpload streams an upload into the input namespace in bounded
	// increments and returns the stored path.
	SaveUpload(ctx context.Context, name string, r io.Reader) (string, error)

	// ProcessedPath returns the path an output artifact name maps to.
	ProcessedPath(name string) string

	// FindUpload returns the name of the first input artifact with the
	// given prefix.
	FindUpload(ctx context.Context, prefix string) (string, error)

	// FindProcessed returns the name of the first output artifact with
	// the given prefix.
	FindProcessed(ctx context.Context, prefix string) (string, error)

	// OpenProcessed opens an output artifact for streaming and reports
	// its size.
	OpenProcessed(ctx context.Context, name string) (io.ReadCloser, int64, error)

	// Exists checks if a path exists
	Exists(ctx context.Context, path string) (bool, error)

	// Size returns file size in bytes
	Size(ctx context.Context, path string) (int64, error)

	// Remove deletes a file
	Remove(ctx context.Context, path string) error

	// RemoveTask deletes every artifact of a task in both namespaces,
	// returning the combined error of whatever could not be removed.
	RemoveTask(ctx context.Context, taskID string) error
}

// TaskStore tracks explicit task lifecycle state. Implementations must
// be safe for concurrent use by HTTP handlers and pipeline workers.
type TaskStore interface {
	// Create registers a new task
	Create(ctx context.Context, t *model.Task) error

	// Get returns a task by id
	Get(ctx context.Context, id string) (*model.Task, error)

	// SetStatus transitions a task, recording a failure reason when the
	// status is StatusFailed.
	SetStatus(ctx context.Context, id string, status model.TaskStatus, reason string) error

	// Delete removes a task record. Used when a task was registered but
	// could never be scheduled.
	Delete(ctx context.Context, id string) error
}

// Option is the functional option type for per-run processing options
type Option func(*model.ProcessingOptions)

// WithNoiseStd sets the analog noise floor standard deviation
func WithNoiseStd(std float64) Option {
	return func(o *model.ProcessingOptions) {
		o.NoiseStd = std
	}
}

// WithSaturation sets the soft-clip saturation amount
func WithSaturation(amount float64) Option {
	return func(o *model.ProcessingOptions) {
		o.Saturation = amount
	}
}

// WithDynamicsRatio sets the full-scale ratio above which samples are
// boosted by the anti-compressor stage
func WithDynamicsRatio(ratio float64) Option {
	return func(o *model.ProcessingOptions) {
		o.DynamicsRatio = ratio
	}
}

// WithSwing sets the fraction of the inter-beat duration that gets
// shifted on alternating beats
func WithSwing(amount float64) Option {
	return func(o *model.ProcessingOptions) {
		o.Swing = amount
	}
}

// WithStretchRate sets the per-chunk time-stretch rate (values below 1
// slow the audio down)
func WithStretchRate(rate float64) Option {
	return func(o *model.ProcessingOptions) {
		o.StretchRate = rate
	}
}

// WithLofiAmount sets the bit-reduction intensity (0..1)
func WithLofiAmount(amount float64) Option {
	return func(o *model.ProcessingOptions) {
		o.LofiAmount = amount
	}
}

// WithRoom sets the single-reflection ambience delay and gain
func WithRoom(delay time.Duration, gain float64) Option {
	return func(o *model.ProcessingOptions) {
		o.RoomDelay = delay
		o.RoomGain = gain
	}
}

// WithTightness sets the beat tracker's snap tightness; lower values
// trade precision for speed
func WithTightness(t float64) Option {
	return func(o *model.ProcessingOptions) {
		o.Tightness = t
	}
}

// WithNoiseSeed makes every stochastic stage deterministic; zero keeps
// the time-based seeding
func WithNoiseSeed(seed int64) Option {
	return func(o *model.ProcessingOptions) {
		o.NoiseSeed = seed
	}
}
