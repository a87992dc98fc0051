package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", FormatJSON, &buf)
	logger.Debug().Str("symbol", "gold").Msg("scan")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "debug" || entry["symbol"] != "gold" || entry["message"] != "scan" {
		t.Errorf("Unexpected entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("Expected timestamp field")
	}
}

func TestNew_LevelFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := New("verbose", FormatJSON, &buf)
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %v", logger.GetLevel())
	}
	logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected debug to be filtered, got %q", buf.String())
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := New("INFO", "Console", &buf)
	logger.Info().Int("trades", 3).Msg("backtest complete")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("Expected console output, got JSON: %q", out)
	}
	if !strings.Contains(out, "backtest complete") || !strings.Contains(out, "trades=3") {
		t.Errorf("Unexpected console output: %q", out)
	}
}
