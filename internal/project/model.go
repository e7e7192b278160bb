package project

import (
	"github.com/ivlev/constellation/internal/scene"
)

const (
	DefaultClipDuration     = 10.0
	DefaultTimelineDuration = 60.0
)

// MediaClip is an asset in the media bin.
type MediaClip struct {
	ID              string
	Name            string
	URI             string // file://, data: or remote URL
	DurationSeconds float64
}

// Point is an integer pixel offset from the stage center (y up).
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is an integer pixel size override. Zero means natural size.
type Size struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Placement schedules a media clip on the timeline.
type Placement struct {
	ID           string
	ClipID       string
	TargetNodeID string // empty means global placement
	Start        float64
	Duration     float64
	InSeconds    float64
	OutSeconds   float64
	Position     Point
	Scale        Size
}

// End returns Start+Duration.
func (p Placement) End() float64 {
	d := p.Duration
	if d < 0 {
		d = 0
	}
	return p.Start + d
}

// ActiveAt reports whether t lies in [Start, End], both ends inclusive.
func (p Placement) ActiveAt(t float64) bool {
	return t >= p.Start && t <= p.End()
}

// Event is a timeline cue. The editor only carries events through.
type Event struct {
	T      float64           `json:"t"`
	Action string            `json:"action"`
	Params map[string]string `json:"params,omitempty"`
}

// Timeline is an ordered list of placements in insertion order.
type Timeline struct {
	ID              string
	Name            string
	Placements      []Placement
	Events          []Event
	DurationSeconds float64
}

// MaxEnd returns the latest placement end time, or 0.
func (tl Timeline) MaxEnd() float64 {
	end := 0.0
	for _, p := range tl.Placements {
		if e := p.End(); e > end {
			end = e
		}
	}
	return end
}

type Project struct {
	ID       string
	Name     string
	Scene    *scene.Scene
	Media    []MediaClip
	Timeline Timeline
}

// Default returns an empty untitled project wrapping s, or a fresh scene
// when s is nil.
func Default(s *scene.Scene) *Project {
	if s == nil {
		s = scene.New("scene", "Scene")
	}
	return &Project{
		ID:       "untitled",
		Name:     "Untitled",
		Scene:    s,
		Media:    []MediaClip{},
		Timeline: emptyTimeline(),
	}
}

func emptyTimeline() Timeline {
	return Timeline{
		ID:              "tl",
		Name:            "Timeline",
		Placements:      []Placement{},
		Events:          []Event{},
		DurationSeconds: DefaultTimelineDuration,
	}
}

// Clone returns a shallow copy; slices are shared until replaced.
func (p *Project) Clone() *Project {
	cp := *p
	return &cp
}

// FindClip returns the media clip with the given id.
func (p *Project) FindClip(id string) (MediaClip, bool) {
	if p == nil {
		return MediaClip{}, false
	}
	for _, m := range p.Media {
		if m.ID == id {
			return m, true
		}
	}
	return MediaClip{}, false
}

// FindPlacement returns the placement with the given placement id.
func (p *Project) FindPlacement(id string) (Placement, bool) {
	if p == nil {
		return Placement{}, false
	}
	for _, pl := range p.Timeline.Placements {
		if pl.ID == id {
			return pl, true
		}
	}
	return Placement{}, false
}

// WithScene returns a copy of p pointing at s.
func (p *Project) WithScene(s *scene.Scene) *Project {
	cp := p.Clone()
	cp.Scene = s
	return cp
}
