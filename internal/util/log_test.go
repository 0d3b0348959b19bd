package util

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug", "development")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger = NewLogger("invalid", "development")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}
}

func TestNewLoggerProductionUsesStructuredWriter(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	logger := NewLogger("warn", "production")
	os.Stdout = orig
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %s", logger.GetLevel())
	}
	logger.Warn().Msg("probe")
	w.Close()
	out, _ := io.ReadAll(r)
	if !json.Valid(bytes.TrimSpace(out)) {
		t.Fatalf("expected a JSON log line, got %q", out)
	}
}
