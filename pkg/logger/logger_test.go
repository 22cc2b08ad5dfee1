package logger

import (
	"log/slog"
	"testing"
)

func TestInitValidLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			if err := Init(level); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if Get() == nil {
				t.Fatal("Get() returned nil")
			}
		})
	}
}

func TestInitInvalidLevel(t *testing.T) {
	if err := Init("invalid"); err == nil {
		t.Error("expected error for invalid log level, got nil")
	}
}

func TestGetBeforeInit(t *testing.T) {
	global = nil
	if got := Get(); got != slog.Default() {
		t.Error("Get() should return slog.Default() before Init")
	}
}

func TestGetAfterInit(t *testing.T) {
	if err := Init("info"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Get() != global {
		t.Error("Get() should return the initialized logger")
	}
}

func TestForAttachesComponent(t *testing.T) {
	if err := Init("debug"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l := For("mux")
	if l == nil {
		t.Fatal("For() returned nil")
	}
}
