package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNew_JSONFormatInProduction(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer:      &buf,
		Environment: "production",
		Level:       slog.LevelInfo,
	})

	log.Info("reconciled archive", "archive_id", 42)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("production output is not JSON: %v", err)
	}
	if rec["msg"] != "reconciled archive" {
		t.Errorf("msg: got %v", rec["msg"])
	}
	if rec["archive_id"] != float64(42) {
		t.Errorf("archive_id: got %v", rec["archive_id"])
	}
}

func TestNew_PrettyFormatInDevelopment(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer:      &buf,
		Environment: "development",
		Level:       slog.LevelInfo,
	})

	log.Warn("skipping source", "url", "https://example.com")

	out := buf.String()
	if !strings.Contains(out, "WRN") {
		t.Errorf("expected WRN marker in %q", out)
	}
	if !strings.Contains(out, "skipping source") {
		t.Errorf("expected message in %q", out)
	}
	if !strings.Contains(out, "url=https://example.com") {
		t.Errorf("expected attribute in %q", out)
	}
}

func TestPrettyHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{
		Writer: &buf,
		Format: "pretty",
		Level:  slog.LevelWarn,
	})

	log.Debug("hidden")
	log.Info("hidden too")
	log.Error("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("sub-level records leaked: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("expected error record in %q", out)
	}
}

func TestPrettyHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty"})

	log.With("component", "reconciler").Info("done")

	if !strings.Contains(buf.String(), "component=reconciler") {
		t.Errorf("expected bound attribute in %q", buf.String())
	}
}
