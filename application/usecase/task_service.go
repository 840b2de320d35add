package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/stylusfm/stylus/application/pipeline"
	"github.com/stylusfm/stylus/domain/model"
	"github.com/stylusfm/stylus/domain/ports"
	pkgerrors "github.com/stylusfm/stylus/pkg/errors"
	"github.com/stylusfm/stylus/pkg/logger"
	"github.com/stylusfm/stylus/pkg/progress"
	"github.com/stylusfm/stylus/pkg/retry"
)

// mpegContentType is the substring an upload's Content-Type must carry.
const mpegContentType = "audio/mpeg"

// Submission is one uploaded file plus its requested style, already
// detached from the transport that carried it.
type Submission struct {
	Filename    string
	ContentType string
	Style       string
	Data        io.Reader
}

// TaskService is the main application service: it accepts uploads,
// schedules background processing, and answers status and download
// lookups.
type TaskService struct {
	pipeline   *pipeline.Pipeline
	workerPool *pipeline.WorkerPool
	storage    ports.ArtifactStore
	tasks      ports.TaskStore
	reporter   progress.Reporter
	options    *model.ProcessingOptions
	log        *logger.Logger
	cleanupCfg retry.Config
}

// Config holds TaskService configuration
type Config struct {
	Decoder       ports.AudioDecoder
	Storage       ports.ArtifactStore
	Tasks         ports.TaskStore
	Reporter      progress.Reporter
	Logger        *logger.Logger
	Options       *model.ProcessingOptions
	Workers       int
	QueueSize     int
	CleanupConfig retry.Config
}

// NewTaskService creates a new TaskService
func NewTaskService(cfg Config) (*TaskService, error) {
	if cfg.Decoder == nil {
		return nil, fmt.Errorf("AudioDecoder is required")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("ArtifactStore is required")
	}
	if cfg.Tasks == nil {
		return nil, fmt.Errorf("TaskStore is required")
	}

	log := cfg.Logger
	if log == nil {
		var err error
		log, err = logger.New(false)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	reporter := cfg.Reporter
	if reporter == nil {
		reporter = progress.NoopReporter{}
	}

	options := cfg.Options
	if options == nil {
		options = model.DefaultProcessingOptions()
	}

	cleanupCfg := cfg.CleanupConfig
	if cleanupCfg.MaxAttempts == 0 {
		cleanupCfg = retry.CleanupConfig()
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	p := pipeline.NewPipeline(cfg.Decoder, cfg.Storage, log)
	wp := pipeline.NewWorkerPool(context.Background(), workers, queueSize, log)

	return &TaskService{
		pipeline:   p,
		workerPool: wp,
		storage:    cfg.Storage,
		tasks:      cfg.Tasks,
		reporter:   reporter,
		options:    options,
		log:        log,
		cleanupCfg: cleanupCfg,
	}, nil
}

// Submit validates an upload, stores it, registers the task, and
// queues it for background processing. Validation failures leave no
// artifacts behind; scheduling failures remove whatever was already
// stored before they surface.
func (s *TaskService) Submit(ctx context.Context, sub Submission) (*model.Task, error) {
	if sub.Data == nil {
		return nil, pkgerrors.NewValidationError("file", "", "upload body must not be empty")
	}
	if !strings.Contains(sub.ContentType, mpegContentType) {
		return nil, pkgerrors.NewValidationError("file", sub.ContentType, "file must be an MP3 audio file")
	}

	rawStyle := sub.Style
	if rawStyle == "" {
		rawStyle = model.DefaultStyleField
	}
	style := model.ResolveStyle(rawStyle)
	label := model.StyleLabel(rawStyle, style)

	taskID := uuid.NewString()
	ext := filepath.Ext(sub.Filename)
	if ext == "" {
		ext = ".mp3"
	}

	inputPath, err := s.storage.SaveUpload(ctx, taskID+ext, sub.Data)
	if err != nil {
		return nil, err
	}

	// The output keeps the upload's extension even though the encoder
	// always writes WAV; download names stay aligned with what the
	// client sent.
	outputPath := s.storage.ProcessedPath(taskID + "_" + label + ext)

	task := &model.Task{
		ID:         taskID,
		Style:      style,
		StyleLabel: label,
		InputPath:  inputPath,
		OutputPath: outputPath,
		Status:     model.StatusProcessing,
		CreatedAt:  time.Now(),
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		s.cleanupArtifacts(ctx, taskID, inputPath)
		return nil, err
	}

	if err := s.workerPool.Enqueue(taskID, func(ctx context.Context) {
		s.runTask(ctx, taskID, style, inputPath, outputPath)
	}); err != nil {
		s.cleanupArtifacts(ctx, taskID, inputPath)
		if derr := s.tasks.Delete(ctx, taskID); derr != nil {
			s.log.Warn("failed to drop unscheduled task", zap.String("task_id", taskID), zap.Error(derr))
		}
		return nil, err
	}

	s.log.Info("task accepted",
		zap.String("task_id", taskID),
		zap.String("style", string(style)),
		zap.String("filename", sub.Filename),
	)
	return task, nil
}

// runTask executes one queued task and records its terminal state. A
// failed run deletes both artifacts so a task is never half-present.
func (s *TaskService) runTask(ctx context.Context, taskID string, style model.Style, inputPath, outputPath string) {
	job := &pipeline.Job{
		TaskID:     taskID,
		Style:      style,
		InputPath:  inputPath,
		OutputPath: outputPath,
		Options:    s.options,
		Reporter:   s.reporter,
		Log:        s.log,
	}

	result, err := s.pipeline.Run(ctx, job)
	if err != nil {
		s.log.Error("task failed",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		s.cleanupArtifacts(ctx, taskID, inputPath, outputPath)
		if serr := s.tasks.SetStatus(ctx, taskID, model.StatusFailed, err.Error()); serr != nil {
			s.log.Warn("failed to record task failure", zap.String("task_id", taskID), zap.Error(serr))
		}
		return
	}

	if serr := s.tasks.SetStatus(ctx, taskID, model.StatusComplete, ""); serr != nil {
		s.log.Warn("failed to record task completion", zap.String("task_id", taskID), zap.Error(serr))
	}
	s.log.Info("task complete",
		zap.String("task_id", taskID),
		zap.String("output", result.OutputPath),
		zap.Duration("elapsed", result.Elapsed),
	)
}

// cleanupArtifacts removes task artifacts best effort. Removal is
// retried briefly; whatever still fails is logged and swallowed so a
// cleanup problem never masks the error that triggered it.
func (s *TaskService) cleanupArtifacts(ctx context.Context, taskID string, paths ...string) {
	var errs error
	for _, path := range paths {
		path := path
		err := retry.Do(ctx, s.cleanupCfg, func() error {
			exists, err := s.storage.Exists(ctx, path)
			if err != nil {
				return err
			}
			if !exists {
				return nil
			}
			return s.storage.Remove(ctx, path)
		})
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		s.log.Warn("artifact cleanup incomplete",
			zap.String("task_id", taskID),
			zap.Error(errs),
		)
	}
}

// Status returns the current lifecycle state of a task. Tasks missing
// from the registry fall back to artifact-derived state, so lookups
// keep working for tasks accepted before a restart.
func (s *TaskService) Status(ctx context.Context, taskID string) (*model.Task, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err == nil {
		return task, nil
	}
	if _, ok := pkgerrors.As[*pkgerrors.NotFoundError](err); !ok {
		return nil, err
	}

	if name, ferr := s.storage.FindProcessed(ctx, taskID); ferr == nil && name != "" {
		return &model.Task{ID: taskID, Status: model.StatusComplete}, nil
	}
	if name, ferr := s.storage.FindUpload(ctx, taskID); ferr == nil && name != "" {
		return &model.Task{ID: taskID, Status: model.StatusProcessing}, nil
	}
	return nil, err
}

// Fetch opens a task's processed artifact for download. It returns the
// artifact's name, a reader the caller must close, and the size in
// bytes.
func (s *TaskService) Fetch(ctx context.Context, taskID string) (string, io.ReadCloser, int64, error) {
	name, err := s.storage.FindProcessed(ctx, taskID)
	if err != nil {
		return "", nil, 0, err
	}
	if name == "" {
		return "", nil, 0, pkgerrors.NewNotFoundError("audio", taskID)
	}
	rc, size, err := s.storage.OpenProcessed(ctx, name)
	if err != nil {
		return "", nil, 0, err
	}
	return name, rc, size, nil
}

// ProcessFile runs the pipeline synchronously on a local file, outside
// the task registry. Used by the command line front end.
func (s *TaskService) ProcessFile(ctx context.Context, style model.Style, inputPath, outputPath string, opts ...ports.Option) (*model.Result, error) {
	options := *s.options
	for _, o := range opts {
		o(&options)
	}

	s.log.Info("starting one-shot processing",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("style", string(style)),
	)

	job := &pipeline.Job{
		TaskID:     generateTaskID(inputPath),
		Style:      style,
		InputPath:  inputPath,
		OutputPath: outputPath,
		Options:    &options,
		Reporter:   s.reporter,
		Log:        s.log,
		KeepInput:  true,
	}
	return s.pipeline.Run(ctx, job)
}

// Probe returns metadata about an audio file without processing it
func (s *TaskService) Probe(ctx context.Context, path string) (*model.AudioMetadata, error) {
	exists, err := s.storage.Exists(ctx, path)
	if err != nil {
		return nil, pkgerrors.NewStorageError("stat", path, "failed to check file", err)
	}
	if !exists {
		return nil, pkgerrors.NewValidationError("inputPath", path, "file does not exist")
	}
	return s.pipeline.ProbeFile(ctx, path)
}

// Close stops task intake and waits for queued tasks to drain.
func (s *TaskService) Close() {
	s.workerPool.Close()
}

func generateTaskID(input string) string {
	return fmt.Sprintf("task-%d-%s", time.Now().UnixNano(), sanitize(input))
}

func sanitize(s string) string {
	if len(s) > 20 {
		s = s[len(s)-20:]
	}
	result := make([]byte, 0, len(s))
	for _, c := range []byte(s) {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}
