package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) Entry {
	t.Helper()
	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to unmarshal log entry: %v", err)
	}
	return entry
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Output:    &buf,
		MinLevel:  LevelDebug,
		WithStack: true,
	})

	if logger.output != &buf {
		t.Error("expected output to be set")
	}
	if logger.minLevel != LevelDebug {
		t.Errorf("expected minLevel DEBUG, got %s", logger.minLevel)
	}
	if logger.format != FormatJSON {
		t.Errorf("expected default format json, got %s", logger.format)
	}
	if !logger.withStack {
		t.Error("expected withStack to be true")
	}
}

func TestDefault(t *testing.T) {
	logger := Default()

	if logger.minLevel != LevelWarn {
		t.Errorf("expected minLevel WARN, got %s", logger.minLevel)
	}
	if logger.withStack {
		t.Error("expected withStack to be false")
	}
}

func TestDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, MinLevel: LevelDebug})

	logger.Debug("debug message")

	entry := decodeEntry(t, &buf)
	if entry.Level != LevelDebug {
		t.Errorf("expected level DEBUG, got %s", entry.Level)
	}
	if entry.Message != "debug message" {
		t.Errorf("expected message 'debug message', got %s", entry.Message)
	}
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, MinLevel: LevelError})

	logger.Error("error message", errors.New("test error"))

	entry := decodeEntry(t, &buf)
	if entry.Level != LevelError {
		t.Errorf("expected level ERROR, got %s", entry.Level)
	}
	if entry.Error != "test error" {
		t.Errorf("expected error 'test error', got %s", entry.Error)
	}
	if len(entry.Stack) != 0 {
		t.Error("expected no stack when withStack is false")
	}
}

func TestErrorWithStack(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, MinLevel: LevelError, WithStack: true})

	logger.Error("error with stack", errors.New("boom"))

	entry := decodeEntry(t, &buf)
	if len(entry.Stack) == 0 {
		t.Error("expected stack trace to be captured")
	}
}

func TestMinLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, MinLevel: LevelWarn})

	logger.Debug("hidden")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output below WARN, got %q", buf.String())
	}

	logger.Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("expected WARN entry to be written")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, MinLevel: LevelDebug})

	logger.WithFields(map[string]interface{}{
		"identifier": "ep-01",
		"state":      "navigating",
	}).Debug("state transition")

	entry := decodeEntry(t, &buf)
	if entry.Context["identifier"] != "ep-01" {
		t.Errorf("expected identifier 'ep-01', got %v", entry.Context["identifier"])
	}
	if entry.Context["state"] != "navigating" {
		t.Errorf("expected state 'navigating', got %v", entry.Context["state"])
	}
}

func TestContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, MinLevel: LevelInfo})

	ctx := ContextWithRunID(context.Background(), "run-1")
	ctx = ContextWithCatalog(ctx, "naruto")
	ctx = ContextWithRequestID(ctx, "req-9")
	logger.WithFields(map[string]interface{}{"pending": 3}).InfoContext(ctx, "run started")

	entry := decodeEntry(t, &buf)
	if entry.Context["run_id"] != "run-1" {
		t.Errorf("expected run_id 'run-1', got %v", entry.Context["run_id"])
	}
	if entry.Context["catalog"] != "naruto" {
		t.Errorf("expected catalog 'naruto', got %v", entry.Context["catalog"])
	}
	if entry.Context["request_id"] != "req-9" {
		t.Errorf("expected request_id 'req-9', got %v", entry.Context["request_id"])
	}
	if entry.Context["pending"] != float64(3) {
		t.Errorf("expected pending 3, got %v", entry.Context["pending"])
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, MinLevel: LevelInfo, Format: FormatText})

	logger.WithFields(map[string]interface{}{"b": 2, "a": 1}).Error("save failed", errors.New("disk full"))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "ERROR save failed a=1 b=2") {
		t.Errorf("unexpected text line: %q", line)
	}
	if !strings.HasSuffix(line, `error="disk full"`) {
		t.Errorf("expected quoted error suffix, got %q", line)
	}
}

func TestConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, MinLevel: LevelInfo})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("saved")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for _, line := range lines {
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Errorf("interleaved line %q: %v", line, err)
		}
	}
}

func TestNewWithLevel(t *testing.T) {
	tests := []struct {
		level         string
		expectedLevel Level
		expectStack   bool
	}{
		{"debug", LevelDebug, true},
		{"info", LevelInfo, false},
		{"WARN", LevelWarn, false},
		{"error", LevelError, false},
		{"invalid", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewWithLevel(tt.level)
			if logger.minLevel != tt.expectedLevel {
				t.Errorf("expected level %s, got %s", tt.expectedLevel, logger.minLevel)
			}
			if logger.withStack != tt.expectStack {
				t.Errorf("expected withStack %v, got %v", tt.expectStack, logger.withStack)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if parseFormat("text") != FormatText {
		t.Error("expected text format")
	}
	if parseFormat("json") != FormatJSON || parseFormat("") != FormatJSON {
		t.Error("expected json to be the fallback format")
	}
}

func TestInitializeLoggersWithFormat(t *testing.T) {
	mu.Lock()
	appLogger = nil
	databaseLogger = nil
	mu.Unlock()

	InitializeLoggersWithFormat("debug", "warn", "text")

	if AppLogger().minLevel != LevelDebug {
		t.Errorf("expected app logger level DEBUG, got %s", AppLogger().minLevel)
	}
	if DatabaseLogger().minLevel != LevelWarn {
		t.Errorf("expected database logger level WARN, got %s", DatabaseLogger().minLevel)
	}
	if AppLogger().format != FormatText {
		t.Errorf("expected text format, got %s", AppLogger().format)
	}

	mu.Lock()
	appLogger = nil
	databaseLogger = nil
	mu.Unlock()
}

func TestSetAppLogger(t *testing.T) {
	customLogger := NewWithLevel("error")
	SetAppLogger(customLogger)

	if AppLogger() != customLogger {
		t.Error("expected custom logger to be set")
	}

	SetAppLogger(nil)
}

func TestAppLogger_Singleton(t *testing.T) {
	SetAppLogger(nil)

	if AppLogger() != AppLogger() {
		t.Error("expected AppLogger to return the same instance")
	}
}

func TestDatabaseLogger_Singleton(t *testing.T) {
	SetDatabaseLogger(nil)

	if DatabaseLogger() != DatabaseLogger() {
		t.Error("expected DatabaseLogger to return the same instance")
	}
}
