package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation settings
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// Config describes where and how the tracker logs.
type Config struct {
	Level  string // debug, info, warn, error (default info)
	Format string // text or json (default text)
	Color  bool   // colorize text output
	File   FileConfig
}

// FileConfig enables rotated file output when Path is set.
// Rotation parameters follow lumberjack semantics.
type FileConfig struct {
	Path       string
	MaxSizeMB  int  // megabytes before rotation (default 10)
	MaxBackups int  // number of backups to keep (default 3)
	MaxAgeDays int  // days to keep (default 7)
	Compress   bool // Gzip rotated files
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger. The returned closer releases the log file, if any.
func (c Config) New() (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, nil, err
	}
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if fw := c.File.Writer(); fw != nil {
		w, closer = fw, fw
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(c.Format) {
	case "", "text":
		if c.Color && c.File.Path == "" {
			h = NewColorTextHandler(w, opts, true)
		} else {
			h = slog.NewTextHandler(w, opts)
		}
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("unknown log format %q", c.Format)
	}
	return slog.New(h), closer, nil
}

// Writer returns a rotating writer for Path, or nil when Path is empty.
func (f FileConfig) Writer() io.WriteCloser {
	if f.Path == "" {
		return nil
	}
	return &lj.Logger{
		Filename:   f.Path,
		MaxSize:    valOr(f.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(f.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(f.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   f.Compress,
	}
}

// ParseLevel maps a level name to slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
