package olog

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config carries the environment-tunable settings. Zero rotation size means
// plain append-only output without rotation.
type Config struct {
	// Level is the severity threshold (none, error, warning, info, debug).
	Level string `env:"OLOG_LEVEL" env-default:"info"`

	// File is the output path. Empty keeps the default stdout sink.
	File string `env:"OLOG_FILE"`

	// StagingBufferSize is the per-producer staging buffer capacity in bytes.
	StagingBufferSize int `env:"OLOG_STAGING_BUFFER_SIZE" env-default:"1048576"`

	// OutputBufferSize is the size of each double-buffer half in bytes.
	OutputBufferSize int `env:"OLOG_OUTPUT_BUFFER_SIZE" env-default:"8388608"`

	// LineEnding selects the line terminator: "crlf" (default) or "lf".
	LineEnding string `env:"OLOG_LINE_ENDING" env-default:"crlf"`

	// MaxSizeMB enables size-based rotation of File when positive.
	MaxSizeMB int `env:"OLOG_MAX_SIZE_MB" env-default:"0"`

	// MaxBackups bounds the rotated file count.
	MaxBackups int `env:"OLOG_MAX_BACKUPS" env-default:"3"`

	// MaxAgeDays bounds the rotated files' age.
	MaxAgeDays int `env:"OLOG_MAX_AGE_DAYS" env-default:"7"`

	// Compress gzips rotated files.
	Compress bool `env:"OLOG_COMPRESS" env-default:"false"`
}

// FromEnv reads the configuration from OLOG_* environment variables.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("olog: reading environment config: %w", err)
	}
	if _, err := ParseLevel(cfg.Level); err != nil {
		return nil, err
	}
	switch cfg.LineEnding {
	case "crlf", "lf":
	default:
		return nil, fmt.Errorf("olog: unknown line ending %q", cfg.LineEnding)
	}
	return &cfg, nil
}

func (c *Config) lineEnding() string {
	if c.LineEnding == "lf" {
		return "\n"
	}
	return DefaultLineEnding
}

// NewWithConfig creates and starts a logger from cfg.
func NewWithConfig(cfg *Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	l := newLogger(cfg.StagingBufferSize, cfg.OutputBufferSize, cfg.lineEnding(),
		ConsoleSink(os.Stdout), nil)
	l.SetLevel(level)

	if cfg.File != "" {
		if cfg.MaxSizeMB > 0 {
			l.SetRotatingOutput(cfg.File, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays, cfg.Compress)
		} else if err := l.SetOutputFile(cfg.File); err != nil {
			l.Close()
			return nil, err
		}
	}
	return l, nil
}

// SetRotatingOutput installs a size/age-rotated file sink. Rotation happens
// inside the I/O goroutine between submitted buffers, never on the hot path.
func (l *Logger) SetRotatingOutput(path string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	}
	l.writer.setSink(lj, lj)
}
