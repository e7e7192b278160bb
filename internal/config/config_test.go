package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DisplayAddr != "http://127.0.0.1:50051" {
		t.Errorf("DisplayAddr: got %q", cfg.DisplayAddr)
	}
	if cfg.DefaultClipDuration != 10 || cfg.DefaultTimelineDuration != 60 {
		t.Errorf("durations: %v / %v", cfg.DefaultClipDuration, cfg.DefaultTimelineDuration)
	}
}

func TestLoadOverridesAndFills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	body := "display_addr: http://10.0.0.5:50051\npdf_dpi: 0\ntick_interval: 50ms\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DisplayAddr != "http://10.0.0.5:50051" {
		t.Errorf("DisplayAddr: got %q", cfg.DisplayAddr)
	}
	if cfg.PDFDPI != 150 {
		t.Errorf("zero dpi should fall back to default, got %d", cfg.PDFDPI)
	}
	if cfg.TickInterval != 50*time.Millisecond {
		t.Errorf("TickInterval: got %v", cfg.TickInterval)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	cfg := Default()
	cfg.MDNSService = "_stage._tcp"
	cfg.ImportWorkers = 3

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("display_addr: [unterminated"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
