package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stylusfm/stylus/domain/model"
	"github.com/stylusfm/stylus/domain/ports"
	"github.com/stylusfm/stylus/dsp/beat"
	"github.com/stylusfm/stylus/dsp/effects"
	"github.com/stylusfm/stylus/dsp/stretch"
	"github.com/stylusfm/stylus/dsp/wav"
	pkgerrors "github.com/stylusfm/stylus/pkg/errors"
	"github.com/stylusfm/stylus/pkg/logger"
	"github.com/stylusfm/stylus/pkg/progress"
)

// Job holds the state of a single processing run: where the uploaded
// audio lives, where the output goes, and which preset shapes it.
type Job struct {
	TaskID     string
	Style      model.Style
	InputPath  string
	OutputPath string
	Options    *model.ProcessingOptions
	Reporter   progress.Reporter
	Log        *logger.Logger

	// KeepInput leaves the input artifact in place after decoding.
	// Uploads are dropped once decoded; one-shot runs on caller-owned
	// files must not be.
	KeepInput bool
}

// report is a helper to emit progress updates
func (j *Job) report(stage progress.Stage, percent float64, msg string) {
	if j.Reporter == nil {
		return
	}
	j.Reporter.Report(progress.Update{
		TaskID:  j.TaskID,
		Stage:   stage,
		Percent: percent,
		Message: msg,
	})
}

func (j *Job) logger(base *logger.Logger) *logger.Logger {
	log := j.Log
	if log == nil {
		log = base
	}
	return log.With(
		zap.String("task_id", j.TaskID),
		zap.String("style", string(j.Style)),
	)
}

// Pipeline orchestrates the offline effect chain for one job at a
// time: probe, decode, preset stages, normalize, encode. Stages within
// a job run strictly in order; concurrency happens across jobs in the
// worker pool, never inside one.
type Pipeline struct {
	decoder ports.AudioDecoder
	storage ports.ArtifactStore
	log     *logger.Logger
}

// NewPipeline creates a pipeline backed by the given decoder and
// artifact store.
func NewPipeline(decoder ports.AudioDecoder, storage ports.ArtifactStore, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		decoder: decoder,
		storage: storage,
		log:     log,
	}
}

// Run executes the full pipeline for a job. The input artifact is
// removed once decoding has succeeded; cleanup of artifacts after a
// failed run belongs to the caller.
func (p *Pipeline) Run(ctx context.Context, job *Job) (*model.Result, error) {
	start := time.Now()

	if err := p.validate(ctx, job); err != nil {
		return nil, err
	}

	log := job.logger(p.log)
	opts := job.Options
	if opts == nil {
		opts = model.DefaultProcessingOptions()
	}

	// Probing is informational; a probe failure never fails the task.
	meta, err := p.decoder.Probe(ctx, job.InputPath)
	if err != nil {
		log.Warn("failed to probe input file", zap.Error(err))
		meta = &model.AudioMetadata{}
	} else {
		log.Debug("input probed",
			zap.Duration("duration", meta.Duration),
			zap.String("codec", meta.Codec),
			zap.Int("sample_rate", meta.SampleRate),
			zap.Int("channels", meta.Channels),
		)
	}
	job.report(progress.StageProbe, 5, "input probed")

	buf, err := p.decoder.Decode(ctx, job.InputPath)
	if err != nil {
		return nil, err
	}
	log.Debug("input decoded",
		zap.Int("samples", buf.Len()),
		zap.Duration("duration", buf.Duration()),
	)
	job.report(progress.StageDecode, 15, "input decoded")

	// The upload has served its purpose; drop it so the upload
	// namespace only holds tasks that still need decoding.
	if !job.KeepInput {
		if err := p.storage.Remove(ctx, job.InputPath); err != nil {
			log.Warn("failed to remove input artifact", zap.Error(err))
		}
	}

	var samples []float64
	switch job.Style {
	case model.StyleRawDynamics:
		samples, err = p.runRawDynamics(ctx, job, opts, buf.Samples, buf.Rate, log)
	case model.StyleLofi:
		samples, err = p.runLofi(ctx, job, opts, buf.Samples, buf.Rate, log)
	}
	if err != nil {
		return nil, err
	}

	job.report(progress.StageEncode, 90, "encoding started")
	if err := wav.EncodeFile(job.OutputPath, samples, buf.Rate); err != nil {
		return nil, pkgerrors.NewStorageError("write", job.OutputPath, "failed to write output artifact", err)
	}
	if size, err := p.storage.Size(ctx, job.OutputPath); err == nil {
		log.Debug("output written", zap.Int64("bytes", size))
	}

	elapsed := time.Since(start)
	log.Info("processing finished",
		zap.Int("samples", len(samples)),
		zap.Duration("elapsed", elapsed),
	)
	job.report(progress.StageDone, 100, "done")

	return &model.Result{
		TaskID:      job.TaskID,
		Style:       job.Style,
		InputPath:   job.InputPath,
		OutputPath:  job.OutputPath,
		InputMeta:   meta,
		Samples:     len(samples),
		Elapsed:     elapsed,
		ProcessedAt: time.Now(),
	}, nil
}

// ProbeFile probes audio metadata for a path.
func (p *Pipeline) ProbeFile(ctx context.Context, path string) (*model.AudioMetadata, error) {
	return p.decoder.Probe(ctx, path)
}

func (p *Pipeline) validate(ctx context.Context, job *Job) error {
	if job == nil {
		return pkgerrors.NewValidationError("job", "", "job must not be nil")
	}
	if job.TaskID == "" {
		return pkgerrors.NewValidationError("taskId", "", "task id must not be empty")
	}
	if job.Style != model.StyleRawDynamics && job.Style != model.StyleLofi {
		return pkgerrors.NewValidationError("style", string(job.Style), "unknown processing style")
	}
	if job.InputPath == "" {
		return pkgerrors.NewValidationError("inputPath", "", "input path must not be empty")
	}
	if job.OutputPath == "" {
		return pkgerrors.NewValidationError("outputPath", "", "output path must not be empty")
	}
	if opts := job.Options; opts != nil {
		if opts.RawChunkSeconds <= 0 || opts.LofiChunkSeconds <= 0 {
			return pkgerrors.NewValidationError("options", "", "chunk duration must be positive")
		}
	}

	exists, err := p.storage.Exists(ctx, job.InputPath)
	if err != nil {
		return pkgerrors.NewStorageError("stat", job.InputPath, "failed to check input file", err)
	}
	if !exists {
		return pkgerrors.NewValidationError("inputPath", job.InputPath, "input file does not exist")
	}
	return nil
}

// runRawDynamics applies the raw-dynamics preset: noise, saturation,
// expansion, and transient emphasis chunk by chunk, then a single room
// reflection and peak normalization over the whole track.
func (p *Pipeline) runRawDynamics(ctx context.Context, job *Job, opts *model.ProcessingOptions, samples []float64, rate int, log *logger.Logger) ([]float64, error) {
	noise, err := effects.NewNoiseInjector(opts.NoiseStd, opts.NoiseSeed)
	if err != nil {
		return nil, pkgerrors.NewProcessingError("effects", "invalid noise stage", err)
	}
	sat, err := effects.NewSaturator(opts.Saturation)
	if err != nil {
		return nil, pkgerrors.NewProcessingError("effects", "invalid saturation stage", err)
	}
	exp, err := effects.NewExpander(opts.DynamicsRatio, opts.DynamicsBoost)
	if err != nil {
		return nil, pkgerrors.NewProcessingError("effects", "invalid dynamics stage", err)
	}
	trans, err := effects.NewTransientEnhancer(opts.TransientDelta, opts.TransientBoost)
	if err != nil {
		return nil, pkgerrors.NewProcessingError("effects", "invalid transient stage", err)
	}
	room, err := effects.NewRoomReflection(rate, opts.RoomDelay, opts.RoomGain)
	if err != nil {
		return nil, pkgerrors.NewProcessingError("ambience", "invalid room stage", err)
	}

	chunkLen := ChunkSamples(opts.RawChunkSeconds, rate)
	out, err := ApplyChunked(samples, chunkLen, func(chunk []float64, offset int) ([]float64, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		noise.ProcessInPlace(chunk)
		sat.ProcessInPlace(chunk)
		exp.ProcessInPlace(chunk)
		trans.ProcessInPlace(chunk)
		return chunk, nil
	})
	if err != nil {
		return nil, pkgerrors.NewProcessingError("effects", "raw-dynamics chunk stages failed", err)
	}
	job.report(progress.StageEffects, 55, "chunk stages applied")

	room.ProcessInPlace(out)
	job.report(progress.StageAmbience, 70, "room reflection added")

	effects.Normalize(out, opts.RawTarget)
	log.Debug("normalized", zap.Float64("peak", effects.Peak(out)))
	job.report(progress.StageNormalize, 80, "normalized")
	return out, nil
}

// runLofi applies the lo-fi preset: one beat grid over the whole
// track, then swing, time stretch, and bit crushing chunk by chunk,
// then peak normalization. Stretching each chunk on its own changes
// the chunk's length; the seams this leaves between chunks are part of
// the preset's sound and stay un-realigned.
func (p *Pipeline) runLofi(ctx context.Context, job *Job, opts *model.ProcessingOptions, samples []float64, rate int, log *logger.Logger) ([]float64, error) {
	tracker, err := beat.NewTracker(rate, opts.Tightness)
	if err != nil {
		return nil, pkgerrors.NewProcessingError("beats", "invalid beat tracker", err)
	}
	grid, err := tracker.Track(samples)
	if err != nil {
		return nil, pkgerrors.NewProcessingError("beats", "beat tracking failed", err)
	}
	log.Debug("beat grid computed",
		zap.Int("beats", len(grid.Beats)),
		zap.Float64("bpm", grid.BPM),
	)
	job.report(progress.StageBeats, 25, fmt.Sprintf("%d beats at %.1f bpm", len(grid.Beats), grid.BPM))

	swing, err := effects.NewSwingShifter(rate, grid.Beats, opts.Swing)
	if err != nil {
		return nil, pkgerrors.NewProcessingError("effects", "invalid swing stage", err)
	}
	stretcher, err := stretch.NewStretcher(opts.StretchRate)
	if err != nil {
		return nil, pkgerrors.NewProcessingError("effects", "invalid stretch stage", err)
	}
	crusher, err := effects.NewLofiCrusher(opts.LofiAmount, opts.NoiseSeed)
	if err != nil {
		return nil, pkgerrors.NewProcessingError("effects", "invalid crusher stage", err)
	}

	chunkLen := ChunkSamples(opts.LofiChunkSeconds, rate)
	out, err := ApplyChunked(samples, chunkLen, func(chunk []float64, offset int) ([]float64, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		swing.ProcessChunk(chunk, offset)
		stretched, err := stretcher.Process(chunk)
		if err != nil {
			return nil, err
		}
		crusher.ProcessInPlace(stretched)
		return stretched, nil
	})
	if err != nil {
		return nil, pkgerrors.NewProcessingError("effects", "lo-fi chunk stages failed", err)
	}
	job.report(progress.StageEffects, 70, "chunk stages applied")

	effects.Normalize(out, opts.LofiTarget)
	log.Debug("normalized", zap.Float64("peak", effects.Peak(out)))
	job.report(progress.StageNormalize, 80, "normalized")
	return out, nil
}
