package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/stylusfm/stylus/domain/model"
	pkgerrors "github.com/stylusfm/stylus/pkg/errors"
	"github.com/stylusfm/stylus/pkg/logger"
)

// Decoder implements ports.AudioDecoder on top of the ffmpeg and
// ffprobe binaries. Decoding streams raw float64 PCM over a pipe, so
// any input format ffmpeg understands comes out as one mono buffer at
// the service sample rate.
type Decoder struct {
	ffmpegPath  string
	ffprobePath string
	log         *logger.Logger
}

// DecoderConfig holds configuration for the ffmpeg decoder
type DecoderConfig struct {
	FFmpegPath  string
	FFprobePath string
	Logger      *logger.Logger
}

// NewDecoder creates a decoder, resolving binaries from PATH when no
// explicit paths are configured.
func NewDecoder(cfg DecoderConfig) (*Decoder, error) {
	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		var err error
		ffmpegPath, err = exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
		}
	}

	ffprobePath := cfg.FFprobePath
	if ffprobePath == "" {
		var err error
		ffprobePath, err = exec.LookPath("ffprobe")
		if err != nil {
			return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
		}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Decoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		log:         log,
	}, nil
}

// Decode converts path into a mono buffer at model.SampleRate,
// truncated at model.MaxAudioSeconds.
func (d *Decoder) Decode(ctx context.Context, path string) (*model.Buffer, error) {
	args := []string{
		"-i", path,
		"-f", "f64le",
		"-acodec", "pcm_f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(model.SampleRate),
		"-t", strconv.Itoa(model.MaxAudioSeconds),
		"-loglevel", "error",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, pkgerrors.NewDecodeError("failed to open decoder pipe", args, -1, "", err)
	}

	d.log.Debug("decoding input", zap.String("path", path))
	if err := cmd.Start(); err != nil {
		return nil, pkgerrors.NewDecodeError("failed to start ffmpeg", args, -1, "", err)
	}

	samples, readErr := readSamples(stdout)
	if err := cmd.Wait(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, pkgerrors.NewDecodeError("ffmpeg decode failed", args, exitCode, stderr.String(), err)
	}
	if readErr != nil {
		return nil, pkgerrors.NewDecodeError("failed to read decoded stream", args, 0, stderr.String(), readErr)
	}
	if len(samples) == 0 {
		return nil, pkgerrors.NewDecodeError("decoded stream is empty", args, 0, stderr.String(), nil)
	}

	d.log.Debug("decoded",
		zap.String("path", path),
		zap.Int("samples", len(samples)),
	)
	return model.NewBuffer(samples, model.SampleRate), nil
}

// readSamples drains little-endian float64 frames from r. A trailing
// partial frame is dropped.
func readSamples(r io.Reader) ([]float64, error) {
	samples := make([]float64, 0, model.SampleRate*16)
	buf := make([]byte, 1<<16)
	var rem int
	var frame [8]byte

	for {
		n, err := r.Read(buf[rem:])
		n += rem
		rem = 0

		for i := 0; i+8 <= n; i += 8 {
			copy(frame[:], buf[i:i+8])
			samples = append(samples, math.Float64frombits(binary.LittleEndian.Uint64(frame[:])))
		}
		if tail := n % 8; tail > 0 {
			copy(buf, buf[n-tail:n])
			rem = tail
		}

		if err == io.EOF {
			return samples, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// ffprobeOutput maps key fields from ffprobe JSON
type ffprobeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
		Size       string `json:"size"`
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		BitRate    string `json:"bit_rate"`
	} `json:"streams"`
}

// Probe runs ffprobe and returns the input's parsed metadata.
func (d *Decoder) Probe(ctx context.Context, path string) (*model.AudioMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	cmd := exec.CommandContext(ctx, d.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, pkgerrors.NewDecodeError("ffprobe execution failed", args, exitCode, stderr.String(), err)
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	meta := &model.AudioMetadata{
		Format: probe.Format.FormatName,
	}

	var durationSec float64
	if _, err := fmt.Sscanf(probe.Format.Duration, "%f", &durationSec); err == nil {
		meta.Duration = time.Duration(durationSec * float64(time.Second))
	}
	fmt.Sscanf(probe.Format.Size, "%d", &meta.Size)

	for _, s := range probe.Streams {
		meta.Codec = s.CodecName
		meta.Channels = s.Channels
		fmt.Sscanf(s.SampleRate, "%d", &meta.SampleRate)
		fmt.Sscanf(s.BitRate, "%d", &meta.Bitrate)
		break // take first audio stream
	}

	return meta, nil
}
