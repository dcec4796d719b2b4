// Package logging configures the process-wide structured logger: JSON lines
// to stderr, optionally mirrored into a size-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level"`
	// FilePath is the log file path. Empty means stderr only.
	FilePath string `yaml:"file_path"`
	// MaxSizeMB is the file size before rotation (default 10).
	MaxSizeMB int `yaml:"max_size_mb"`
	// MaxFiles is the number of rotated files kept (default 5).
	MaxFiles int `yaml:"max_files"`
}

// DefaultConfig returns stderr-only info logging.
func DefaultConfig() Config {
	return Config{Level: "info", MaxSizeMB: 10, MaxFiles: 5}
}

// Setup builds the logger, installs it as the slog default, and returns a
// cleanup function that flushes and closes the file sink.
func Setup(cfg Config) (func(), error) {
	var output io.Writer = os.Stderr
	cleanup := func() {}

	if cfg.FilePath != "" {
		writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, err
		}
		output = io.MultiWriter(os.Stderr, writer)
		cleanup = func() {
			_ = writer.Sync()
			_ = writer.Close()
		}
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	})
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

// ParseLevel converts a level string to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
