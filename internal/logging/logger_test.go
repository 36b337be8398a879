package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/skillswap/backend/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_JSONAndLevelVar(t *testing.T) {
	var buf bytes.Buffer
	log, level := newWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"})

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn, got %q", buf.String())
	}

	level.Set(slog.LevelDebug)
	log.Debug("kept", "user_id", "u1")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON line: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "kept" || rec["user_id"] != "u1" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	log, _ := newWithWriter(&buf, config.LogConfig{Level: "info", Format: "text"})
	log.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("expected text output, got %q", buf.String())
	}
}
