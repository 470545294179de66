package logging

import (
	"testing"

	"github.com/xelth-com/eckmrpgo/internal/config"
)

func TestNew(t *testing.T) {
	logger, err := New(config.LogConfig{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !logger.Core().Enabled(-1) {
		t.Error("Expected debug level enabled")
	}

	if _, err := New(config.LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Error("Expected error for unknown level")
	}
	if _, err := New(config.LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Error("Expected error for unknown format")
	}
}
