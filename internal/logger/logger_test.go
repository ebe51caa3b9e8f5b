package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "citysolid.log")

	if err := Init("warn", logFile, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	t.Cleanup(func() { Log = zap.NewNop(); Sugar = Log.Sugar() })

	Info("hidden below warn level")
	Warn("building dropped", zap.String("entity", "MESH #3"), zap.String("stage", "fix winding"))
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "building dropped" || entry["entity"] != "MESH #3" || entry["level"] != "warn" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNopBeforeInit(t *testing.T) {
	// Logging before Init must not panic.
	Debug("nothing")
	Error("nothing")
	Sugar.Infof("nothing %d", 1)
}

func TestInitConsoleOnly(t *testing.T) {
	if err := Init("debug", "", true); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	t.Cleanup(func() { Log = zap.NewNop(); Sugar = Log.Sugar() })

	if !Log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled")
	}
	if err := Init("error", "", false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	if Log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("without console or file nothing should be written")
	}
}
