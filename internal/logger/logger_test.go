package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/feed-the-cat/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuild_FileOutput(t *testing.T) {
	dir := t.TempDir()
	l, modules, err := Build(&config.LogConfig{
		Level:  "debug",
		Format: "json",
		Output: "file",
		File: config.LogFileConfig{
			Path:     dir,
			Filename: "test.log",
			MaxSize:  1,
		},
		Modules: map[string]string{"feed": "warn"},
	})
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Contains(t, modules, "feed")

	l.Info("hello")
	_ = l.Sync()
	assert.FileExists(t, dir+"/test.log")
}

func TestSetLevel(t *testing.T) {
	SetLevel("error")
	assert.False(t, level.Enabled(zap.InfoLevel))
	SetLevel("debug")
	assert.True(t, level.Enabled(zap.DebugLevel))
	SetLevel("info")
}

func TestDomainHelpers(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := ReplaceForTest(zap.New(core))
	defer restore()

	LogFeed("guest-1", "US", 3, 12.5, 42)
	LogRateLimited("guest-1", "10.0.0.1")
	LogBatchFlush("idle", 4, nil)
	LogBatchFlush("duration", 2, errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "feed", entries[0].Message)
	assert.Equal(t, "US", entries[0].ContextMap()["country"])
	assert.Equal(t, "rate_limited", entries[1].Message)
	assert.Equal(t, "batch_flush", entries[2].Message)
	assert.Equal(t, "batch_flush_failed", entries[3].Message)
}

func TestLogError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := ReplaceForTest(zap.New(core))
	defer restore()

	LogError(errors.New("shutdown timeout"), "服务器关闭失败", zap.String("stage", "http"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, "shutdown timeout", entries[0].ContextMap()["error"])
	assert.Equal(t, "http", entries[0].ContextMap()["stage"])
}
