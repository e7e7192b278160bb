package main

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/constellation/internal/config"
	"github.com/ivlev/constellation/internal/project"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.Default()
	cfg.CacheDir = filepath.Join(dir, "cache")
	cfg.ProjectsDir = filepath.Join(dir, "projects")
	cfg.MinFreeBytes = 0
	cfg.DefaultClipDuration = 4
	path := filepath.Join(dir, "constellation.yaml")
	if err := config.Save(cfg, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	c := newCLI("test")
	cfg, err := c.load([]string{"-config", cfgPath, "-addr", "10.0.0.5:9000", "rest"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DisplayAddr != "10.0.0.5:9000" {
		t.Errorf("addr: %q", cfg.DisplayAddr)
	}
	if cfg.CacheDir != filepath.Join(dir, "cache") {
		t.Errorf("cache dir from file lost: %q", cfg.CacheDir)
	}
	if !c.set("addr") || c.set("cache") {
		t.Error("set() mismatch")
	}
	if got := c.fs.Args(); len(got) != 1 || got[0] != "rest" {
		t.Errorf("args: %v", got)
	}
}

func TestAppendClipsBackToBack(t *testing.T) {
	p := project.Default(nil)
	d1, d2 := 3.0, 5.0
	p = appendClips(p, []project.ClipSpec{{Name: "a", DurationSeconds: &d1}, {Name: "b", DurationSeconds: &d2}}, "scr")
	p = appendClips(p, []project.ClipSpec{{Name: "c", DurationSeconds: &d1}}, "")

	pls := p.Timeline.Placements
	if len(pls) != 3 {
		t.Fatalf("placements: %d", len(pls))
	}
	wantStart := []float64{0, 3, 8}
	for i, pl := range pls {
		if pl.Start != wantStart[i] {
			t.Errorf("placement %d start %v, want %v", i, pl.Start, wantStart[i])
		}
	}
	if pls[0].TargetNodeID != "scr" || pls[2].TargetNodeID != "" {
		t.Error("targets not applied")
	}
	if p.Timeline.DurationSeconds != 60 {
		t.Errorf("duration: %v", p.Timeline.DurationSeconds)
	}
}

func TestFloatArg(t *testing.T) {
	if v, err := floatArg([]string{"12.5"}, "t"); err != nil || v != 12.5 {
		t.Errorf("got %v %v", v, err)
	}
	if _, err := floatArg(nil, "t"); err == nil {
		t.Error("expected error for missing value")
	}
	if _, err := floatArg([]string{"abc"}, "t"); err == nil {
		t.Error("expected parse error")
	}
}

func TestDisplayURL(t *testing.T) {
	got := displayURL("192.168.1.4:5173/", "screen-1", 1920, 1080)
	want := "http://192.168.1.4:5173/?display=1&screenId=screen-1&w=1920&h=1080"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestImportMediaWritesProject(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	src := filepath.Join(dir, "show")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b.png", "a.png"} {
		f, err := os.Create(filepath.Join(src, name))
		if err != nil {
			t.Fatal(err)
		}
		png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4)))
		f.Close()
	}
	os.WriteFile(filepath.Join(src, "notes.txt"), []byte("x"), 0644)

	if err := runImportMedia(context.Background(), []string{"-config", cfgPath, src}); err != nil {
		t.Fatalf("import: %v", err)
	}
	out := filepath.Join(dir, "projects", "show.json")
	p, err := readProject(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Media) != 2 || p.Media[0].Name != "a.png" {
		t.Fatalf("media: %+v", p.Media)
	}
	if !strings.HasPrefix(p.Media[0].URI, "file://"+filepath.ToSlash(filepath.Join(dir, "cache"))) {
		t.Errorf("not cached: %s", p.Media[0].URI)
	}
	if p.Timeline.Placements[1].Start != 4 {
		t.Errorf("second clip start: %v", p.Timeline.Placements[1].Start)
	}

	if err := runRelink(context.Background(), []string{"-config", cfgPath, out}); err != nil {
		t.Errorf("relink of cached project: %v", err)
	}
}
