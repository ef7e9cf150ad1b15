package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/catalog-scraper/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuild_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := build(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&buf))

	logger.Debug("hidden")
	logger.Info("extracted page", zap.Int("records", 10))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug must be filtered at info level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "extracted page", entry["msg"])
	assert.Equal(t, "catalog-scraper", entry["logger"])
	assert.EqualValues(t, 10, entry["records"])
}

func TestBuild_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := build(config.LoggerConfig{Level: "verbose", Format: "json"}, zapcore.AddSync(&buf))

	logger.Debug("hidden")
	logger.Info("shown")
	require.NoError(t, logger.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestBuild_FileSink(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "scraper.log")
	var console bytes.Buffer
	logger := build(config.LoggerConfig{Level: "debug", Format: "console", File: logFile, MaxSizeMB: 1}, zapcore.AddSync(&console))

	logger.Warn("proceeding despite missing table")
	require.NoError(t, logger.Sync())

	assert.Contains(t, console.String(), "proceeding despite missing table")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"proceeding despite missing table"`)
}
