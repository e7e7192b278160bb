package display

import (
	"github.com/ivlev/constellation/internal/media"
	"github.com/ivlev/constellation/internal/project"
)

const (
	placeholderSize = 100
	minItemSize     = 2
)

// Rect is a placed item in window pixels, origin top-left.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout positions a placement in a window of size win. The placement
// position is an offset from the window center with y pointing up. A
// positive scale axis overrides the natural size; unknown natural sizes
// use a 100px placeholder.
func Layout(pl project.Placement, natural media.Size, win media.Size) Rect {
	baseW, baseH := float64(natural.W), float64(natural.H)
	if baseW <= 0 {
		baseW = placeholderSize
	}
	if baseH <= 0 {
		baseH = placeholderSize
	}
	w, h := baseW, baseH
	if pl.Scale.X > 0 {
		w = float64(pl.Scale.X)
	}
	if pl.Scale.Y > 0 {
		h = float64(pl.Scale.Y)
	}
	w = max(minItemSize, w)
	h = max(minItemSize, h)

	cx, cy := float64(win.W)/2, float64(win.H)/2
	return Rect{
		Left:   cx + float64(pl.Position.X) - w/2,
		Top:    cy - float64(pl.Position.Y) - h/2,
		Width:  w,
		Height: h,
	}
}

// Item is one clip a display window should render.
type Item struct {
	PlacementID string `json:"placement_id"`
	ClipID      string `json:"clip_id"`
	Name        string `json:"name"`
	URI         string `json:"uri"`
	Rect        Rect   `json:"rect"`
}

// Frame lists what a window of size win shows at time t: every active
// placement, in timeline order. Intrinsic sizes come from probe, which may
// be nil.
func Frame(p *project.Project, t float64, win media.Size, probe func(uri string) (media.Size, bool)) []Item {
	var items []Item
	for _, pl := range project.ActivePlacementsAt(p, t) {
		clip, ok := p.FindClip(pl.ClipID)
		if !ok {
			continue
		}
		var natural media.Size
		if probe != nil {
			if s, ok := probe(clip.URI); ok {
				natural = s
			}
		}
		items = append(items, Item{
			PlacementID: pl.ID,
			ClipID:      clip.ID,
			Name:        clip.Name,
			URI:         clip.URI,
			Rect:        Layout(pl, natural, win),
		})
	}
	return items
}
