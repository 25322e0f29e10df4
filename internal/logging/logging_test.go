package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewHandler_Formats(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"text", false},
		{"pretty", false},
		{"", false},
		{"xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			h, err := NewHandler(&bytes.Buffer{}, Config{Level: "info", Format: tt.format})
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewHandler(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if !tt.wantErr && h == nil {
				t.Error("expected handler, got nil")
			}
		})
	}
}

func TestPrettyHandler_WritesMessageAndAttrs(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, slog.LevelInfo)).With("module", "music_player")

	logger.Info("track started", "guild", 42)
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "[INFO] track started") {
		t.Errorf("expected level and message in output, got %q", out)
	}
	if !strings.Contains(out, "module=music_player") || !strings.Contains(out, "guild=42") {
		t.Errorf("expected attrs in output, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug record to be filtered, got %q", out)
	}
}

func TestPrettyHandler_Groups(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, slog.LevelDebug)).WithGroup("http")

	logger.Warn("slow request", "path", "/api")

	if !strings.Contains(buf.String(), "http.path=/api") {
		t.Errorf("expected grouped attr, got %q", buf.String())
	}
}

func TestPrettyHandler_AttrsKeepTheirGroup(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, slog.LevelDebug)).
		With("module", "music").
		WithGroup("http").
		With("method", "GET")

	logger.Info("request", "path", "/api")

	out := buf.String()
	for _, want := range []string{" module=music", " http.method=GET", " http.path=/api"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "http.module") {
		t.Errorf("attr added before the group was qualified: %q", out)
	}
}
