package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestComponentTag(t *testing.T) {
	var buf bytes.Buffer
	SetFormat(&buf, FormatJSON)
	defer SetFormat(&bytes.Buffer{}, FormatText)

	Warn(ComponentPost, "flip pending", "crtc", 42)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["component"] != "post" || rec["msg"] != "flip pending" || rec["crtc"] != float64(42) {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	SetFormat(&buf, FormatText)
	old := Level()
	defer SetLevel(old)

	SetLevel(slog.LevelWarn)
	Info(ComponentKMS, "hidden")
	Error(ComponentKMS, "shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("level filter not applied: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	} {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
