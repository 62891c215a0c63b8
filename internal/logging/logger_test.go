// Package logging includes tests for the zap logger helpers.
package logging

import (
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestNewDevelopmentLogger confirms the development logger builds and logs.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	if err != nil {
		t.Fatalf("New(true) error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

// TestNewProductionLogger ensures the production logger configuration succeeds.
func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	if err != nil {
		t.Fatalf("New(false) error = %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("production logger ready")
}

// TestNewRunLogger verifies the per-run file receives the log trail.
func TestNewRunLogger(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)

	logger, logPath, closeFn, err := NewRunLogger(dir, "info", now)
	if err != nil {
		t.Fatalf("NewRunLogger() error = %v", err)
	}
	if !strings.HasSuffix(logPath, "run_20240103_090000.log") {
		t.Fatalf("unexpected log path %s", logPath)
	}

	logger.Info("window opened", zap.String("source", "boe"))
	closeFn()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "window opened") {
		t.Fatalf("log file missing entry: %s", data)
	}
}

// TestNewRunLoggerBadLevelFallsBack checks unknown levels default to info.
func TestNewRunLoggerBadLevelFallsBack(t *testing.T) {
	t.Parallel()

	logger, _, closeFn, err := NewRunLogger(t.TempDir(), "chatty", time.Now())
	if err != nil {
		t.Fatalf("NewRunLogger() error = %v", err)
	}
	defer closeFn()
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info level to be enabled")
	}
}
