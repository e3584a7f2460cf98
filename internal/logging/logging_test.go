// ABOUTME: Tests for logger construction.
// ABOUTME: Checks level parsing and format selection.
package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		wantErr bool
		enabled zapcore.Level
	}{
		{"info", "console", false, zapcore.InfoLevel},
		{"DEBUG", "json", false, zapcore.DebugLevel},
		{"warn", "", false, zapcore.WarnLevel},
		{"loud", "console", true, 0},
		{"info", "xml", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if !logger.Core().Enabled(tt.enabled) {
				t.Errorf("level %s not enabled", tt.enabled)
			}
			if tt.enabled > zapcore.DebugLevel && logger.Core().Enabled(tt.enabled-1) {
				t.Errorf("level below %s unexpectedly enabled", tt.enabled)
			}
		})
	}
}

func TestMustFallsBackToNop(t *testing.T) {
	logger := Must("nope", "console")
	if logger == nil {
		t.Fatal("Must returned nil")
	}
	if logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected no-op logger")
	}
}
