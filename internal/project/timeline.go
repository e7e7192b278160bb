package project

import (
	"math"

	"github.com/ivlev/constellation/internal/scene"
)

// Vec2 is a pixel position or size as it arrives from the UI, before
// rounding.
type Vec2 struct {
	X, Y float64
}

// AxisPatch carries the axes to change; nil axes keep their value.
type AxisPatch struct {
	X, Y *float64
}

// Selector addresses a placement. PlacementID wins when set. ClipID is a
// compatibility lookup that resolves to the first placement referencing
// the clip, which is ambiguous when the clip is placed more than once.
type Selector struct {
	PlacementID string
	ClipID      string
}

func (s Selector) index(tl Timeline) int {
	for i, p := range tl.Placements {
		if s.PlacementID != "" {
			if p.ID == s.PlacementID {
				return i
			}
			continue
		}
		if s.ClipID != "" && p.ClipID == s.ClipID {
			return i
		}
	}
	return -1
}

// ClipSpec describes a media clip to add to the bin.
type ClipSpec struct {
	ID              string
	Name            string
	URI             string
	DurationSeconds *float64
}

// AddMediaClip appends a clip to the media bin. A nil project is replaced
// by Default(nil).
func AddMediaClip(p *Project, spec ClipSpec) (*Project, MediaClip) {
	if p == nil {
		p = Default(nil)
	}
	clip := MediaClip{
		ID:              spec.ID,
		Name:            spec.Name,
		URI:             spec.URI,
		DurationSeconds: DefaultClipDuration,
	}
	if clip.ID == "" {
		clip.ID = scene.NewID("clip")
	}
	if clip.Name == "" {
		clip.Name = "Clip"
	}
	if spec.DurationSeconds != nil {
		clip.DurationSeconds = *spec.DurationSeconds
	}

	next := p.Clone()
	next.Media = appendClip(p.Media, clip)
	return next, clip
}

// AddClipRequest inserts an existing clip. StartAt defaults to now and
// Duration to the clip's nominal duration.
type AddClipRequest struct {
	ClipID       string
	TargetNodeID string
	StartAt      *float64
	Duration     *float64
	Position     *Vec2
	Scale        *Vec2
}

// AddClipToTimeline places a clip from the bin on the timeline and widens
// the aggregate duration to fit it. Start and duration are clamped to be
// non-negative. Unknown clip ids are a no-op.
func AddClipToTimeline(p *Project, req AddClipRequest, now float64) *Project {
	if p == nil {
		return nil
	}
	clip, ok := p.FindClip(req.ClipID)
	if !ok {
		return p
	}
	dur := clip.DurationSeconds
	if req.Duration != nil {
		dur = *req.Duration
	}
	start := now
	if req.StartAt != nil {
		start = *req.StartAt
	}
	start, dur = math.Max(0, start), math.Max(0, dur)

	pl := Placement{
		ID:           scene.NewID("tl"),
		ClipID:       clip.ID,
		TargetNodeID: req.TargetNodeID,
		Start:        start,
		Duration:     dur,
		InSeconds:    0,
		OutSeconds:   dur,
	}
	if req.Position != nil {
		pl.Position = Point{X: roundPx(req.Position.X, 0), Y: roundPx(req.Position.Y, 0)}
	}
	if req.Scale != nil {
		pl.Scale = Size{X: roundPx(req.Scale.X, 0), Y: roundPx(req.Scale.Y, 0)}
	}
	return insertPlacement(p, pl)
}

// ImageSpec adds an image to the bin and places it in one step.
type ImageSpec struct {
	URI      string
	Name     string
	Duration float64 // zero means DefaultClipDuration
}

// AddImageToShow creates an image clip and a placement for it at now.
func AddImageToShow(p *Project, spec ImageSpec, now float64) (*Project, Placement) {
	if p == nil {
		p = Default(nil)
	}
	dur := spec.Duration
	if dur == 0 {
		dur = DefaultClipDuration
	}
	dur = math.Max(0, dur)
	id := scene.NewID("img")
	name := spec.Name
	if name == "" {
		name = id
	}
	clip := MediaClip{ID: id, Name: name, URI: spec.URI, DurationSeconds: dur}
	pl := Placement{
		ID:         scene.NewID("tl"),
		ClipID:     id,
		Start:      math.Max(0, now),
		Duration:   dur,
		OutSeconds: dur,
	}

	next := p.Clone()
	next.Media = appendClip(p.Media, clip)
	return insertPlacement(next, pl), pl
}

func insertPlacement(p *Project, pl Placement) *Project {
	next := p.Clone()
	tl := p.Timeline
	placements := make([]Placement, 0, len(tl.Placements)+1)
	placements = append(placements, tl.Placements...)
	tl.Placements = append(placements, pl)
	tl.DurationSeconds = math.Max(tl.DurationSeconds, pl.End())
	next.Timeline = tl
	return next
}

// UpdateClipTransform merges the supplied axes into a placement's position
// and size. All pixel fields are rounded to integers.
func UpdateClipTransform(p *Project, sel Selector, pos, size *AxisPatch) *Project {
	return updatePlacement(p, sel, func(pl *Placement) {
		if pos != nil {
			pl.Position = Point{
				X: patchAxis(pos.X, pl.Position.X),
				Y: patchAxis(pos.Y, pl.Position.Y),
			}
		}
		if size != nil {
			pl.Scale = Size{
				X: patchAxis(size.X, pl.Scale.X),
				Y: patchAxis(size.Y, pl.Scale.Y),
			}
		}
	})
}

// UpdateClipStart moves a placement. The start is clamped to
// [0, timeline duration]; the timeline duration itself is not widened.
func UpdateClipStart(p *Project, sel Selector, startAt float64) *Project {
	if p == nil {
		return nil
	}
	limit := math.Max(0, p.Timeline.DurationSeconds)
	return updatePlacement(p, sel, func(pl *Placement) {
		pl.Start = clamp(startAt, 0, limit)
	})
}

// UpdateClipDuration sets a placement's duration (clamped to >= 0) and
// recomputes the aggregate timeline duration from all placement ends.
func UpdateClipDuration(p *Project, sel Selector, duration float64) *Project {
	d := math.Max(0, duration)
	next := updatePlacement(p, sel, func(pl *Placement) {
		pl.Duration = d
		pl.OutSeconds = pl.InSeconds + d
	})
	if next == p {
		return p
	}
	next.Timeline.DurationSeconds = math.Max(next.Timeline.DurationSeconds, next.Timeline.MaxEnd())
	return next
}

func updatePlacement(p *Project, sel Selector, fn func(*Placement)) *Project {
	if p == nil {
		return nil
	}
	i := sel.index(p.Timeline)
	if i < 0 {
		return p
	}
	placements := make([]Placement, len(p.Timeline.Placements))
	copy(placements, p.Timeline.Placements)
	fn(&placements[i])

	next := p.Clone()
	next.Timeline.Placements = placements
	return next
}

// RemoveClip removes the placement with the given placement id.
func RemoveClip(p *Project, placementID string) *Project {
	if p == nil {
		return nil
	}
	placements, removed := filterPlacements(p.Timeline.Placements, func(pl Placement) bool {
		return pl.ID == placementID
	})
	if !removed {
		return p
	}
	next := p.Clone()
	next.Timeline.Placements = placements
	return next
}

// RemoveMediaClip removes a clip from the bin together with every
// placement that references it.
func RemoveMediaClip(p *Project, clipID string) *Project {
	if p == nil {
		return nil
	}
	media := make([]MediaClip, 0, len(p.Media))
	for _, m := range p.Media {
		if m.ID != clipID {
			media = append(media, m)
		}
	}
	placements, removed := filterPlacements(p.Timeline.Placements, func(pl Placement) bool {
		return pl.ClipID == clipID
	})
	if !removed && len(media) == len(p.Media) {
		return p
	}
	next := p.Clone()
	next.Media = media
	next.Timeline.Placements = placements
	return next
}

// SetMediaURI replaces the URI of a clip, e.g. after caching it locally.
func SetMediaURI(p *Project, clipID, uri string) *Project {
	if p == nil {
		return nil
	}
	for i, m := range p.Media {
		if m.ID != clipID {
			continue
		}
		media := make([]MediaClip, len(p.Media))
		copy(media, p.Media)
		media[i].URI = uri
		next := p.Clone()
		next.Media = media
		return next
	}
	return p
}

// ActivePlacementsAt returns the placements whose closed interval
// [start, start+duration] contains t, in insertion order.
func ActivePlacementsAt(p *Project, t float64) []Placement {
	var out []Placement
	if p == nil {
		return out
	}
	for _, pl := range p.Timeline.Placements {
		if pl.ActiveAt(t) {
			out = append(out, pl)
		}
	}
	return out
}

// ActiveForTarget picks the clip a display should show on one node at t.
// Only placements targeting the node count, the interval is half-open and
// the latest-starting placement wins on overlap.
func ActiveForTarget(p *Project, nodeID string, t float64) (Placement, MediaClip, bool) {
	if p == nil {
		return Placement{}, MediaClip{}, false
	}
	best := -1
	for i, pl := range p.Timeline.Placements {
		if pl.TargetNodeID != nodeID {
			continue
		}
		if t < pl.Start || t >= pl.End() {
			continue
		}
		if best < 0 || pl.Start >= p.Timeline.Placements[best].Start {
			best = i
		}
	}
	if best < 0 {
		return Placement{}, MediaClip{}, false
	}
	pl := p.Timeline.Placements[best]
	clip, ok := p.FindClip(pl.ClipID)
	if !ok {
		return Placement{}, MediaClip{}, false
	}
	return pl, clip, true
}

func appendClip(media []MediaClip, clip MediaClip) []MediaClip {
	out := make([]MediaClip, 0, len(media)+1)
	out = append(out, media...)
	return append(out, clip)
}

func filterPlacements(in []Placement, drop func(Placement) bool) ([]Placement, bool) {
	out := make([]Placement, 0, len(in))
	for _, pl := range in {
		if !drop(pl) {
			out = append(out, pl)
		}
	}
	return out, len(out) != len(in)
}

func patchAxis(v *float64, current int) int {
	if v == nil {
		return current
	}
	return roundPx(*v, float64(current))
}

// roundPx rounds half up like the UI layer does; non-finite values fall
// back to fallback.
func roundPx(v, fallback float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = fallback
	}
	return int(math.Floor(v + 0.5))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
