package olog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, DefaultStagingBufferSize, cfg.StagingBufferSize)
	assert.Equal(t, DefaultOutputBufferSize, cfg.OutputBufferSize)
	assert.Equal(t, "crlf", cfg.LineEnding)
	assert.Equal(t, 0, cfg.MaxSizeMB)
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("OLOG_LEVEL", "debug")
	t.Setenv("OLOG_STAGING_BUFFER_SIZE", "4096")
	t.Setenv("OLOG_LINE_ENDING", "lf")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, 4096, cfg.StagingBufferSize)
	assert.Equal(t, "\n", cfg.lineEnding())
}

func TestConfigRejectsBadValues(t *testing.T) {
	t.Setenv("OLOG_LEVEL", "chatty")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("OLOG_LEVEL", "info")
	t.Setenv("OLOG_LINE_ENDING", "cr")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestNewWithConfigWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	cfg := &Config{
		Level:             "info",
		File:              path,
		StagingBufferSize: DefaultStagingBufferSize,
		OutputBufferSize:  1 << 16,
		LineEnding:        "lf",
	}

	l, err := NewWithConfig(cfg)
	require.NoError(t, err)

	p := l.NewProducer()
	var cs Callsite
	p.Logf(&cs, "cfg.go", 3, LevelInfo, "to file %d", 9)
	p.Close()
	l.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cfg.go:3 [INFO][0]: to file 9\n")
	assert.False(t, strings.Contains(string(data), "\r\n"))
}

func TestNewWithConfigBadPath(t *testing.T) {
	cfg := &Config{
		Level:             "info",
		File:              filepath.Join(t.TempDir(), "missing", "dir", "out.log"),
		StagingBufferSize: DefaultStagingBufferSize,
		OutputBufferSize:  1 << 16,
		LineEnding:        "crlf",
	}
	_, err := NewWithConfig(cfg)
	assert.Error(t, err)
}

func TestSetOutputFilePreservesSinkOnError(t *testing.T) {
	sink := &collectSink{}
	l := newTestLogger(sink)

	err := l.SetOutputFile(filepath.Join(t.TempDir(), "no", "such", "dir", "x.log"))
	require.Error(t, err)

	p := l.NewProducer()
	var cs Callsite
	p.Logf(&cs, "keep.go", 1, LevelInfo, "still %s", "here")
	p.Close()
	l.Close()

	assert.Contains(t, sink.String(), "still here")
}

func TestRotatingOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rot.log")
	sink := &collectSink{}
	l := newTestLogger(sink)
	l.SetRotatingOutput(path, 1, 2, 1, false)

	p := l.NewProducer()
	var cs Callsite
	p.Logf(&cs, "rot.go", 1, LevelInfo, "rotated sink %d", 1)
	p.Close()
	l.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rotated sink 1")
}
