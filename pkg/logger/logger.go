package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Options selects the log level and an optional JSON log file.
type Options struct {
	Level string
	File  string
}

// New constructs the JSON slog logger used by every component. When a file is
// configured, records fan out to stdout and the file.
func New(opts Options) (*slog.Logger, func(), error) {
	levelName := opts.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		levelName = env
	}
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(levelName)}
	stdout := slog.NewJSONHandler(os.Stdout, handlerOpts)

	path := strings.TrimSpace(opts.File)
	if path == "" {
		return slog.New(stdout).With("service", "exoplanet-classifier"), func() {}, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	cleanup := func() { _ = file.Close() }
	return NewWithWriters(os.Stdout, file, levelName), cleanup, nil
}

// NewWithWriters builds a fanout logger over two writers.
func NewWithWriters(primary, secondary io.Writer, level string) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(level)}
	handler := slogmulti.Fanout(
		slog.NewJSONHandler(primary, handlerOpts),
		slog.NewJSONHandler(secondary, handlerOpts),
	)
	return slog.New(handler).With("service", "exoplanet-classifier")
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
