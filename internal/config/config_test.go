package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Port)
	}
	if cfg.OutputDir != "Filtered_Images" {
		t.Errorf("Expected default output dir Filtered_Images, got %s", cfg.OutputDir)
	}
	if cfg.MedianKernel != 5 {
		t.Errorf("Expected median kernel 5, got %d", cfg.MedianKernel)
	}
	if cfg.HighPassCutoff != 50 {
		t.Errorf("Expected cutoff 50, got %v", cfg.HighPassCutoff)
	}
	if cfg.AcceptanceThreshold != 0.9 {
		t.Errorf("Expected acceptance threshold 0.9, got %v", cfg.AcceptanceThreshold)
	}
	if diff := cmp.Diff([]string{"user", "purna"}, cfg.KnownLabels); diff != "" {
		t.Errorf("KnownLabels mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HIGHPASS_MODE", "spatial")
	t.Setenv("ACCEPTANCE_THRESHOLD", "0.75")
	t.Setenv("TIMESTAMPED_NAMES", "false")
	t.Setenv("KNOWN_LABELS", " alice, ,bob ")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.HighPassMode != "spatial" {
		t.Errorf("Expected spatial high-pass, got %s", cfg.HighPassMode)
	}
	if cfg.AcceptanceThreshold != 0.75 {
		t.Errorf("Expected threshold 0.75, got %v", cfg.AcceptanceThreshold)
	}
	if cfg.Timestamped {
		t.Error("Expected timestamped names to be disabled")
	}
	if diff := cmp.Diff([]string{"alice", "bob"}, cfg.KnownLabels); diff != "" {
		t.Errorf("KnownLabels mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv("HIGHPASS_CUTOFF", "wide")
	t.Setenv("TIMESTAMPED_NAMES", "maybe")

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Expected fallback port 8080, got %d", cfg.Port)
	}
	if cfg.HighPassCutoff != 50 {
		t.Errorf("Expected fallback cutoff 50, got %v", cfg.HighPassCutoff)
	}
	if !cfg.Timestamped {
		t.Error("Expected fallback timestamped names")
	}
}
