package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries the service's operational knobs. Everything comes
// from the environment; preset parameters are not configurable here.
type Config struct {
	ListenAddr   string
	UploadDir    string
	ProcessedDir string
	Workers      int
	QueueSize    int
	FFmpegPath   string
	FFprobePath  string
	DevLog       bool
}

// Load reads configuration from the environment, after loading .env
// files when present.
func Load() Config {
	// Missing .env files are fine; the environment wins either way.
	_ = godotenv.Load(".env", ".env.local")

	return Config{
		ListenAddr:   getenv("LISTEN_ADDR", ":8000"),
		UploadDir:    getenv("UPLOAD_DIR", "uploads"),
		ProcessedDir: getenv("PROCESSED_DIR", "processed"),
		Workers:      getint("WORKERS", 4),
		QueueSize:    getint("QUEUE_SIZE", 64),
		FFmpegPath:   getenv("FFMPEG_PATH", ""),
		FFprobePath:  getenv("FFPROBE_PATH", ""),
		DevLog:       getbool("DEV_LOG", false),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getbool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
