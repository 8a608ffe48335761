package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"debug", DebugConfig(), false},
		{"production", ProductionConfig(), false},
		{"bad level", &Config{Level: "loud", Format: TextFormat, Output: StderrOutput}, true},
		{"bad format", &Config{Level: InfoLevel, Format: "xml", Output: StderrOutput}, true},
		{"file without path", &Config{Level: InfoLevel, Format: JSONFormat, Output: FileOutput}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithFieldsAccumulate(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, DebugLevel)

	log.WithComponent("matcher").WithField("pair_id", "p-1").WithError(errors.New("boom")).Warn("conflict")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "matcher" {
		t.Errorf("expected component field, got %v", entry["component"])
	}
	if entry["pair_id"] != "p-1" {
		t.Errorf("expected pair_id field, got %v", entry["pair_id"])
	}
	if entry["error"] != "boom" {
		t.Errorf("expected error field, got %v", entry["error"])
	}
	if entry["level"] != "warning" {
		t.Errorf("expected warning level, got %v", entry["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, InfoLevel)

	log.Debug("hidden")
	log.Info("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("info message should be written")
	}
}

func TestOperationLogger(t *testing.T) {
	var buf bytes.Buffer
	op := NewOperationLogger("reconcile", NewWithWriter(&buf, InfoLevel)).WithField("batches", 2)

	op.Step("currency_conversion", Fields{"pairs": 1})
	op.Success("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %q", len(lines), buf.String())
	}

	var step map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &step); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if step["step"] != "currency_conversion" {
		t.Errorf("expected step name, got %v", step["step"])
	}
	if step["pairs"] != float64(1) {
		t.Errorf("expected pairs counter, got %v", step["pairs"])
	}
	if step["batches"] != float64(2) {
		t.Errorf("expected operation field, got %v", step["batches"])
	}
}
