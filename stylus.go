// Package stylus turns uploaded audio into processed artifacts with one
// of two offline effect presets: raw-dynamics and lofi. The package
// front door wires the decoder, artifact store, task registry, and
// worker pool together; transport lives separately in
// transport/httpapi.
package stylus

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/stylusfm/stylus/application/usecase"
	"github.com/stylusfm/stylus/domain/model"
	"github.com/stylusfm/stylus/domain/ports"
	"github.com/stylusfm/stylus/infrastructure/ffmpeg"
	"github.com/stylusfm/stylus/infrastructure/registry"
	"github.com/stylusfm/stylus/infrastructure/storage"
	"github.com/stylusfm/stylus/pkg/logger"
	"github.com/stylusfm/stylus/pkg/progress"
)

// Re-export types for convenient use by callers
type (
	Task              = model.Task
	TaskStatus        = model.TaskStatus
	Style             = model.Style
	AudioMetadata     = model.AudioMetadata
	Result            = model.Result
	ProcessingOptions = model.ProcessingOptions
	Submission        = usecase.Submission
	ProgressUpdate    = progress.Update
	ProgressStage     = progress.Stage
)

// Re-export lifecycle and preset constants
const (
	StatusProcessing = model.StatusProcessing
	StatusComplete   = model.StatusComplete
	StatusFailed     = model.StatusFailed

	StyleRawDynamics = model.StyleRawDynamics
	StyleLofi        = model.StyleLofi

	StageProbe     = progress.StageProbe
	StageDecode    = progress.StageDecode
	StageBeats     = progress.StageBeats
	StageEffects   = progress.StageEffects
	StageAmbience  = progress.StageAmbience
	StageNormalize = progress.StageNormalize
	StageEncode    = progress.StageEncode
	StageDone      = progress.StageDone
)

// ResolveStyle maps a submitted style string to a preset.
var ResolveStyle = model.ResolveStyle

// Re-export option functions
var (
	WithNoiseStd      = ports.WithNoiseStd
	WithSaturation    = ports.WithSaturation
	WithDynamicsRatio = ports.WithDynamicsRatio
	WithSwing         = ports.WithSwing
	WithStretchRate   = ports.WithStretchRate
	WithLofiAmount    = ports.WithLofiAmount
	WithRoom          = ports.WithRoom
	WithTightness     = ports.WithTightness
	WithNoiseSeed     = ports.WithNoiseSeed
)

// Config holds top-level configuration for the service
type Config struct {
	// FFmpegPath is the path to the ffmpeg binary (auto-detected if empty)
	FFmpegPath string

	// FFprobePath is the path to the ffprobe binary (auto-detected if empty)
	FFprobePath string

	// UploadDir holds uploaded inputs (default: uploads)
	UploadDir string

	// ProcessedDir holds processed outputs (default: processed)
	ProcessedDir string

	// Workers sets the number of parallel pipeline workers (default: 4)
	Workers int

	// QueueSize bounds how many accepted tasks may wait for a worker
	// (default: 64)
	QueueSize int

	// Logger is an optional custom logger. Uses production zap if nil.
	Logger *logger.Logger

	// ZapLogger allows passing a *zap.Logger directly
	ZapLogger *zap.Logger

	// ProgressCh is an optional channel for receiving progress updates
	ProgressCh chan<- ProgressUpdate

	// Options overrides the default preset parameters
	Options *ProcessingOptions
}

// Service is the main entry point
type Service struct {
	tasks *usecase.TaskService
	log   *logger.Logger
}

// New creates a Service with the given configuration.
func New(cfg Config) (*Service, error) {
	log := cfg.Logger
	if log == nil && cfg.ZapLogger != nil {
		log = logger.FromZap(cfg.ZapLogger)
	}
	if log == nil {
		var err error
		log, err = logger.New(false)
		if err != nil {
			return nil, err
		}
	}

	decoder, err := ffmpeg.NewDecoder(ffmpeg.DecoderConfig{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	store, err := storage.NewLocalStore(cfg.UploadDir, cfg.ProcessedDir)
	if err != nil {
		return nil, err
	}

	var reporter progress.Reporter = progress.NoopReporter{}
	if cfg.ProgressCh != nil {
		reporter = progress.NewChannelReporter(cfg.ProgressCh)
	}

	svc, err := usecase.NewTaskService(usecase.Config{
		Decoder:   decoder,
		Storage:   store,
		Tasks:     registry.NewRegistry(),
		Reporter:  reporter,
		Logger:    log,
		Options:   cfg.Options,
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		tasks: svc,
		log:   log,
	}, nil
}

// Tasks exposes the underlying task service for transport wiring.
func (s *Service) Tasks() *usecase.TaskService { return s.tasks }

// Submit validates and stores an upload and queues it for processing.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Task, error) {
	return s.tasks.Submit(ctx, sub)
}

// Status returns the lifecycle state of a task.
func (s *Service) Status(ctx context.Context, taskID string) (*Task, error) {
	return s.tasks.Status(ctx, taskID)
}

// Fetch opens a processed artifact for download.
func (s *Service) Fetch(ctx context.Context, taskID string) (string, io.ReadCloser, int64, error) {
	return s.tasks.Fetch(ctx, taskID)
}

// ProcessFile runs the pipeline synchronously on a local file.
func (s *Service) ProcessFile(ctx context.Context, style Style, inputPath, outputPath string, opts ...ports.Option) (*Result, error) {
	return s.tasks.ProcessFile(ctx, style, inputPath, outputPath, opts...)
}

// Probe returns metadata about an audio file without processing it.
func (s *Service) Probe(ctx context.Context, path string) (*AudioMetadata, error) {
	return s.tasks.Probe(ctx, path)
}

// Close drains queued tasks and flushes the logger.
func (s *Service) Close() {
	s.tasks.Close()
	_ = s.log.Sync()
}
