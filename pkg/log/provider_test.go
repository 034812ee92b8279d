package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// TestZerologProviderOutput verifies the zerolog-backed provider emits
// JSON lines with the structured fields attached.
func TestZerologProviderOutput(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelDebug)

	logger := provider.GetLoggerWithName("prs.pipeline")
	logger.Info("Fit started",
		OperationKey, OperationFit,
		SamplesKey, 1000,
	)

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("Expected log output, got empty string")
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if entry["message"] != "Fit started" {
		t.Errorf("message = %v, want 'Fit started'", entry["message"])
	}
	if entry[ComponentKey] != "prs.pipeline" {
		t.Errorf("%s = %v, want prs.pipeline", ComponentKey, entry[ComponentKey])
	}
	if entry[OperationKey] != OperationFit {
		t.Errorf("%s = %v, want %s", OperationKey, entry[OperationKey], OperationFit)
	}
	if entry[SamplesKey] != 1000.0 {
		t.Errorf("%s = %v, want 1000", SamplesKey, entry[SamplesKey])
	}
}

// TestZerologProviderLevel verifies level filtering and the Enabled check.
func TestZerologProviderLevel(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelWarn)

	logger := provider.GetLogger()
	ctx := context.Background()

	if logger.Enabled(ctx, LevelDebug) {
		t.Error("Debug should be disabled at Warn level")
	}
	if !logger.Enabled(ctx, LevelError) {
		t.Error("Error should be enabled at Warn level")
	}

	logger.Info("suppressed")
	logger.Warn("emitted")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Error("Info message should have been suppressed at Warn level")
	}
	if !strings.Contains(out, "emitted") {
		t.Error("Warn message should have been emitted")
	}
}

// TestZerologProviderErrorField verifies bare error values land under the
// standard error key.
func TestZerologProviderErrorField(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelDebug)

	logger := provider.GetLogger()
	logger.Error("Fit failed", errors.New("bad split"), OperationKey, OperationFit)

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if entry[ErrAttrKey] != "bad split" {
		t.Errorf("%s = %v, want 'bad split'", ErrAttrKey, entry[ErrAttrKey])
	}
}
