package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestFieldsAccumulate(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, InfoLevel, JSONFormat).
		WithComponent("store").
		WithField("bank_code", "730147").
		WithFields(Fields{"run_id": "r-1"})

	log.Info("upsert finished")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}

	want := map[string]string{
		"component": "store",
		"bank_code": "730147",
		"run_id":    "r-1",
		"msg":       "upsert finished",
		"level":     "info",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Errorf("field %s = %v, want %v", key, entry[key], value)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, WarnLevel, TextFormat)

	log.Info("hidden")
	log.WithError(errors.New("boom")).Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "boom") {
		t.Errorf("warn line with error missing: %q", out)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default", *DefaultConfig(), false},
		{"debug", *DebugConfig(), false},
		{"bad level", Config{Level: "loud", Format: TextFormat, Output: StderrOutput}, true},
		{"bad format", Config{Level: InfoLevel, Format: "xml", Output: StderrOutput}, true},
		{"file without path", Config{Level: InfoLevel, Format: JSONFormat, Output: FileOutput}, true},
		{"bad output", Config{Level: InfoLevel, Format: JSONFormat, Output: "syslog"}, true},
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

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, DebugLevel, JSONFormat)

	err := TimedOperation("extract", log, func() error { return errors.New("db down") })
	if err == nil || err.Error() != "db down" {
		t.Fatalf("expected the callback error back, got %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	last := lines[len(lines)-1]
	if !strings.Contains(last, `"status":"error"`) || !strings.Contains(last, `"operation":"extract"`) {
		t.Errorf("unexpected final log line %q", last)
	}
}

func TestOperationSteps(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, DebugLevel, JSONFormat)

	op := NewOperationLogger("reconcile", log).WithField("bank_code", "B1")
	op.Step("normalize", Fields{"rows": 2})
	op.Success("done")

	out := buf.String()
	for _, want := range []string{`"step":"normalize"`, `"rows":2`, `"bank_code":"B1"`, `"status":"success"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output:\n%s", want, out)
		}
	}
}
