package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	stylus "github.com/stylusfm/stylus"
	"github.com/stylusfm/stylus/internal/config"
	"github.com/stylusfm/stylus/pkg/logger"
	"github.com/stylusfm/stylus/transport/httpapi"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides LISTEN_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	log, err := logger.New(cfg.DevLog)
	if err != nil {
		return err
	}
	defer log.Sync()

	progressCh := make(chan stylus.ProgressUpdate, 64)
	go func() {
		for upd := range progressCh {
			log.Debug("progress",
				zap.String("task_id", upd.TaskID),
				zap.String("stage", string(upd.Stage)),
				zap.Float64("percent", upd.Percent),
				zap.String("message", upd.Message),
			)
		}
	}()

	svc, err := stylus.New(stylus.Config{
		FFmpegPath:   cfg.FFmpegPath,
		FFprobePath:  cfg.FFprobePath,
		UploadDir:    cfg.UploadDir,
		ProcessedDir: cfg.ProcessedDir,
		Workers:      cfg.Workers,
		QueueSize:    cfg.QueueSize,
		Logger:       log,
		ProgressCh:   progressCh,
	})
	if err != nil {
		return err
	}

	app := httpapi.NewApp(svc.Tasks(), log)
	server := httpapi.NewServer(cfg.ListenAddr, httpapi.NewRouter(app, log), log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case sig := <-sigCh:
		log.Info("signal received, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			svc.Close()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}

	// Accepted tasks still drain before exit; only then may the
	// progress consumer stop.
	svc.Close()
	close(progressCh)

	log.Info("shutdown complete")
	return nil
}
