package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"info", log.InfoLevel},
		{"", log.InfoLevel},
		{"verbose", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerWithWriter(t *testing.T) {
	t.Setenv("RELIST_LOG_LEVEL", "warn")
	t.Setenv("RELIST_LOG_PREFIX", "test")

	var buf bytes.Buffer
	lc := NewLoggerWithWriter(&buf)
	lc.Info("hidden")
	lc.Warn("shown", "addr", 0x1000)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "test") {
		t.Errorf("missing warn message or prefix: %q", out)
	}
	if err := lc.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestSetDefault(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLoggerWithWriter(&buf))
	Default().Error("boom")
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("default logger did not write: %q", buf.String())
	}
}
