package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	l := NewLoader("")
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsXRSupported || !cfg.PreWarmEnabled {
		t.Fatalf("expected default booleans true, got %+v", cfg)
	}
	if cfg.EventPort != 9001 {
		t.Fatalf("expected default event port 9001, got %d", cfg.EventPort)
	}
}

func TestLoadMergesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xrhostd.yaml")
	body := "is_xr_supported: false\nevent_port: 4242\nstereo_mode: single_pass_multiview\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	l := NewLoader(path)
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IsXRSupported {
		t.Fatalf("expected file override to disable XR support")
	}
	if cfg.EventPort != 4242 {
		t.Fatalf("expected file override event port 4242, got %d", cfg.EventPort)
	}
	if cfg.StereoMode != "single_pass_multiview" {
		t.Fatalf("expected file override stereo mode, got %q", cfg.StereoMode)
	}
	// Unspecified fields keep their defaults.
	if !cfg.PreWarmEnabled {
		t.Fatalf("expected prewarm_enabled to keep its default of true")
	}
}

func TestToHostConfigAndHiveStartupConfigProjectFields(t *testing.T) {
	cfg := ShellConfig{
		ApplicationCacheDirectory: "/tmp/cache",
		IsXRSupported:             true,
		EventPort:                 9001,
		StereoMode:                "multi_pass",
	}
	hc := cfg.ToHostConfig()
	if hc.ApplicationCacheDirectory != "/tmp/cache" || !hc.IsXRSupported {
		t.Fatalf("unexpected host config projection: %+v", hc)
	}
	sc := cfg.ToHiveStartupConfig()
	if sc.EventPort != 9001 || sc.StereoMode != "multi_pass" {
		t.Fatalf("unexpected hive startup config projection: %+v", sc)
	}
}
