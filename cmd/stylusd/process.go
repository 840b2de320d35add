package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"os/signal"

	"github.com/spf13/cobra"

	stylus "github.com/stylusfm/stylus"
	"github.com/stylusfm/stylus/internal/config"
	"github.com/stylusfm/stylus/pkg/logger"
)

var (
	processStyle  string
	processOutput string
)

var processCmd = &cobra.Command{
	Use:   "process <input>",
	Short: "Run one file through an effect preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

var probeCmd = &cobra.Command{
	Use:   "probe <input>",
	Short: "Print audio metadata without processing",
	Args:  cobra.ExactArgs(1),
	RunE:  runProbe,
}

func init() {
	processCmd.Flags().StringVar(&processStyle, "style", "dilla", `style field: "dilla" selects lofi, anything else raw-dynamics`)
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "", "output path (default <input>_<preset>.wav)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log, err := logger.New(cfg.DevLog)
	if err != nil {
		return err
	}
	defer log.Sync()

	input := args[0]
	style := stylus.ResolveStyle(processStyle)
	output := processOutput
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "_" + string(style) + ".wav"
	}

	progressCh := make(chan stylus.ProgressUpdate, 32)
	go func() {
		for upd := range progressCh {
			fmt.Printf("stage=%-10s %3.0f%%  %s\n", upd.Stage, upd.Percent, upd.Message)
		}
	}()

	svc, err := stylus.New(stylus.Config{
		FFmpegPath:   cfg.FFmpegPath,
		FFprobePath:  cfg.FFprobePath,
		UploadDir:    cfg.UploadDir,
		ProcessedDir: cfg.ProcessedDir,
		Logger:       log,
		ProgressCh:   progressCh,
	})
	if err != nil {
		return err
	}
	defer func() {
		svc.Close()
		close(progressCh)
	}()

	result, err := svc.ProcessFile(ctx, style, input, output)
	if err != nil {
		return err
	}

	fmt.Printf("done: %s (%d samples, took %s)\n", result.OutputPath, result.Samples, result.Elapsed.Round(time.Millisecond))
	return nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log, err := logger.New(cfg.DevLog)
	if err != nil {
		return err
	}
	defer log.Sync()

	svc, err := stylus.New(stylus.Config{
		FFmpegPath:   cfg.FFmpegPath,
		FFprobePath:  cfg.FFprobePath,
		UploadDir:    cfg.UploadDir,
		ProcessedDir: cfg.ProcessedDir,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	meta, err := svc.Probe(probeCtx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Duration  : %s\n", meta.Duration)
	fmt.Printf("Codec     : %s\n", meta.Codec)
	fmt.Printf("SampleRate: %d Hz\n", meta.SampleRate)
	fmt.Printf("Channels  : %d\n", meta.Channels)
	fmt.Printf("Bitrate   : %d bps\n", meta.Bitrate)
	fmt.Printf("Format    : %s\n", meta.Format)
	fmt.Printf("Size      : %d bytes\n", meta.Size)
	return nil
}
