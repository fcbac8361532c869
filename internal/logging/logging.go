// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yinkun-ui/yinkun/pkg/types"
)

// EnvDebug forces debug logging when set to a non-empty value.
const EnvDebug = "YINKUN_DEBUG"

// ParseLevel converts a configured level name to a slog level. An empty name
// is info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: unknown log level %q", types.ErrInvalidConfig, name)
}

// New builds a logger writing text to stdout and, when cfg.File is set,
// JSON to a rotated log file. The returned closer releases the file.
func New(cfg types.LogConfig, stdout io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if os.Getenv(EnvDebug) != "" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	text := slog.NewTextHandler(stdout, opts)
	if cfg.File == "" {
		return slog.New(text), nopCloser{}, nil
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	logger := slog.New(slogmulti.Fanout(
		text,
		slog.NewJSONHandler(rotated, opts),
	))
	return logger, rotated, nil
}

// Setup builds the logger with New and installs it as the slog default.
func Setup(cfg types.LogConfig) (io.Closer, error) {
	logger, closer, err := New(cfg, os.Stdout)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
