package telemetry

import "testing"

func TestNewRegistryRegistersEveryCollectorOnce(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

func TestNewLoggerDefaultsToInfoJSON(t *testing.T) {
	logger := NewLogger("", "")
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if !logger.Enabled(nil, 0) { // slog.LevelInfo == 0
		t.Error("expected info level enabled by default")
	}
}
