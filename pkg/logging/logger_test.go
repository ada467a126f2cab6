// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelTrace, "TRACE"},
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.level.String())
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	assert.Equal(t, LevelInfo, LevelFromVerbosity(-1))
	assert.Equal(t, LevelInfo, LevelFromVerbosity(0))
	assert.Equal(t, LevelDebug, LevelFromVerbosity(1))
	assert.Equal(t, LevelTrace, LevelFromVerbosity(2))
	assert.Equal(t, LevelTrace, LevelFromVerbosity(5))
}

func TestConfig_ZeroValueIsInfo(t *testing.T) {
	var cfg Config
	assert.Equal(t, LevelInfo, cfg.Level)
}

// =============================================================================
// Logger Tests
// =============================================================================

func jsonLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), "line: %s", sc.Text())
		out = append(out, m)
	}
	return out
}

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: LevelWarn, JSON: true, Output: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown", "roll", 73)
	logger.Error("shown too")

	lines := jsonLines(t, buf.Bytes())
	require.Len(t, lines, 2)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.EqualValues(t, 73, lines[0]["roll"])
	assert.Equal(t, "ERROR", lines[1]["level"])
}

func TestNew_ServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Service: "octo-journey", JSON: true, Output: &buf})
	require.NoError(t, err)

	logger.Info("hello")
	lines := jsonLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	assert.Equal(t, "octo-journey", lines[0]["service"])
}

func TestNew_TraceAddsSource(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: LevelTrace, JSON: true, Output: &buf})
	require.NoError(t, err)

	logger.Slog().Debug("where am I")
	lines := jsonLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "source")
}

func TestNew_DebugOmitsSource(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: LevelDebug, JSON: true, Output: &buf})
	require.NoError(t, err)

	logger.Debug("plain")
	lines := jsonLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "source")
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Output: &buf})
	require.NoError(t, err)

	logger.Info("Octopus captured", "feature", "ChainSmoker")
	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, `msg="Octopus captured"`)
	assert.Contains(t, out, "feature=ChainSmoker")
}

func TestNew_QuietWithoutFileDiscards(t *testing.T) {
	logger, err := New(Config{Quiet: true})
	require.NoError(t, err)
	assert.NotPanics(t, func() { logger.Error("nowhere") })
	assert.NoError(t, logger.Close())
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{JSON: true, Output: &buf})
	require.NoError(t, err)

	child := logger.With("request_id", "abc")
	child.Info("child")
	logger.Info("parent")

	lines := jsonLines(t, buf.Bytes())
	require.Len(t, lines, 2)
	assert.Equal(t, "abc", lines[0]["request_id"])
	assert.NotContains(t, lines[1], "request_id")
}

// =============================================================================
// File Logging Tests
// =============================================================================

func TestNew_FileLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	var console bytes.Buffer

	logger, err := New(Config{LogDir: dir, Service: "octo", Output: &console})
	require.NoError(t, err)

	logger.Info("to both", "n", 1)
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close(), "second close is a no-op")

	assert.Contains(t, console.String(), "to both")

	name := "octo_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	lines := jsonLines(t, data)
	require.Len(t, lines, 1)
	assert.Equal(t, "to both", lines[0]["msg"])
	assert.Equal(t, "octo", lines[0]["service"])
}

func TestNew_FileLoggingAppends(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		logger, err := New(Config{LogDir: dir, Quiet: true})
		require.NoError(t, err)
		logger.Info("run")
		require.NoError(t, logger.Close())
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "octo-journey_"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Len(t, jsonLines(t, data), 2)
}

func TestNew_BadLogDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := New(Config{LogDir: filepath.Join(blocker, "logs")})
	assert.ErrorContains(t, err, "failed to create log directory")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "logs"), expandPath("~/logs"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
	assert.Equal(t, "relative", expandPath("relative"))
	assert.Equal(t, "", expandPath(""))
}
