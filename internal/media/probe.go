package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Size is an intrinsic media size in pixels.
type Size struct {
	W, H int
}

// ProbeImage reads the dimensions of a local image. Remote URIs, missing
// files and unknown formats report ok=false so callers fall back to
// placeholder sizing.
func ProbeImage(uri string) (Size, bool) {
	if strings.Contains(uri, "://") && !IsFileURI(uri) {
		return Size{}, false
	}
	f, err := os.Open(PathFromURI(uri))
	if err != nil {
		return Size{}, false
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return Size{}, false
	}
	return Size{W: cfg.Width, H: cfg.Height}, true
}

// ProbeDuration asks ffprobe for the container duration of a video or
// audio file.
func ProbeDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", PathFromURI(path))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("ffprobe output %q: %w", strings.TrimSpace(string(out)), err)
	}
	return duration, nil
}

// ClipDuration returns the probed duration of a time-based file, or
// fallback for stills and when probing fails.
func ClipDuration(path string, fallback float64) float64 {
	if IsImage(path) {
		return fallback
	}
	d, err := ProbeDuration(path)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
