package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "constellation.yaml"

type Config struct {
	// Remote display control endpoint the editor talks to.
	DisplayAddr string `yaml:"display_addr"`
	// Listen address of the display control server.
	ControlListen string `yaml:"control_listen"`
	// Listen address of the editor's display hub (websocket + window URLs).
	HubListen string `yaml:"hub_listen"`

	CacheDir     string `yaml:"cache_dir"`
	MinFreeBytes uint64 `yaml:"min_free_bytes"`
	ProjectsDir  string `yaml:"projects_dir"`

	DefaultClipDuration     float64       `yaml:"default_clip_duration"`
	DefaultTimelineDuration float64       `yaml:"default_timeline_duration"`
	TickInterval            time.Duration `yaml:"tick_interval"`

	ImportWorkers int `yaml:"import_workers"`
	PDFDPI        int `yaml:"pdf_dpi"`

	MDNSService string `yaml:"mdns_service"`
}

// Default returns a config with every field set.
func Default() *Config {
	cache := "media-cache"
	if dir, err := os.UserCacheDir(); err == nil {
		cache = filepath.Join(dir, "constellation", "media-cache")
	}
	return &Config{
		DisplayAddr:             "http://127.0.0.1:50051",
		ControlListen:           ":50051",
		HubListen:               "127.0.0.1:5173",
		CacheDir:                cache,
		MinFreeBytes:            256 << 20,
		ProjectsDir:             "projects",
		DefaultClipDuration:     10,
		DefaultTimelineDuration: 60,
		TickInterval:            time.Second / 60,
		ImportWorkers:           runtime.NumCPU(),
		PDFDPI:                  150,
		MDNSService:             "_constellation._tcp",
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора %s: %w", path, err)
	}
	cfg.fill()
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// fill restores defaults for values a config file zeroed out.
func (c *Config) fill() {
	d := Default()
	if c.DisplayAddr == "" {
		c.DisplayAddr = d.DisplayAddr
	}
	if c.ControlListen == "" {
		c.ControlListen = d.ControlListen
	}
	if c.HubListen == "" {
		c.HubListen = d.HubListen
	}
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}
	if c.ProjectsDir == "" {
		c.ProjectsDir = d.ProjectsDir
	}
	if c.DefaultClipDuration <= 0 {
		c.DefaultClipDuration = d.DefaultClipDuration
	}
	if c.DefaultTimelineDuration <= 0 {
		c.DefaultTimelineDuration = d.DefaultTimelineDuration
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.ImportWorkers <= 0 {
		c.ImportWorkers = d.ImportWorkers
	}
	if c.PDFDPI <= 0 {
		c.PDFDPI = d.PDFDPI
	}
	if c.MDNSService == "" {
		c.MDNSService = d.MDNSService
	}
}
