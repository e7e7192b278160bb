package project

import (
	"encoding/json"
	"fmt"

	"github.com/ivlev/constellation/internal/scene"
)

// Marshal writes p in the project file format, wrapped in {"project": ...}.
// Nodes use the tagged "kind" encoding; placements carry both the legacy
// (start_at_seconds, in/out) and current (start, duration) timing fields.
func Marshal(p *Project) ([]byte, error) {
	w, err := Wrap(p)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(w, "", "  ")
}

// Wrap converts p into its wire representation, {"project": Body(p)}.
func Wrap(p *Project) (any, error) {
	wp, err := body(p)
	if err != nil {
		return nil, err
	}
	return &wireWrapper{Project: wp}, nil
}

// Body converts p into the unwrapped project object.
func Body(p *Project) (any, error) {
	wp, err := body(p)
	if err != nil {
		return nil, err
	}
	return wp, nil
}

func body(p *Project) (*wireProject, error) {
	if p == nil {
		return nil, fmt.Errorf("no project loaded")
	}
	sceneRaw, err := EncodeScene(p.Scene)
	if err != nil {
		return nil, err
	}

	wp := &wireProject{
		ID:    p.ID,
		Name:  p.Name,
		Scene: sceneRaw,
		Media: make([]wireClip, 0, len(p.Media)),
	}
	for _, m := range p.Media {
		wp.Media = append(wp.Media, wireClip{
			ID:              m.ID,
			Name:            m.Name,
			URI:             m.URI,
			DurationSeconds: m.DurationSeconds,
		})
	}

	dur := p.Timeline.DurationSeconds
	wt := &wireTimeline{
		ID:              p.Timeline.ID,
		Name:            p.Timeline.Name,
		Tracks:          make([]wireTrack, 0, len(p.Timeline.Placements)),
		Events:          p.Timeline.Events,
		DurationSeconds: &dur,
	}
	if wt.Events == nil {
		wt.Events = []Event{}
	}
	for _, pl := range p.Timeline.Placements {
		wt.Tracks = append(wt.Tracks, wireTrack{Media: placementToWire(pl)})
	}
	wp.Timeline = wt
	return wp, nil
}

func placementToWire(pl Placement) *wirePlacement {
	in, out := pl.InSeconds, pl.OutSeconds
	start, dur := pl.Start, pl.Duration
	return &wirePlacement{
		ID:             pl.ID,
		ClipID:         pl.ClipID,
		TargetNodeID:   pl.TargetNodeID,
		InSeconds:      &in,
		OutSeconds:     &out,
		StartAtSeconds: &start,
		Start:          &start,
		Duration:       &dur,
		Position:       &wirePoint{X: float64(pl.Position.X), Y: float64(pl.Position.Y)},
		Scale:          &wirePoint{X: float64(pl.Scale.X), Y: float64(pl.Scale.Y)},
	}
}

// EncodeScene writes a scene object, including the asset tables it was
// read with.
func EncodeScene(s *scene.Scene) (json.RawMessage, error) {
	if s == nil {
		s = scene.New("scene", "Scene")
	}
	roots := make([]wireNode, 0, len(s.Roots))
	for _, n := range s.Roots {
		if n == nil {
			continue
		}
		wn, err := nodeToWire(n)
		if err != nil {
			return nil, err
		}
		roots = append(roots, wn)
	}

	obj := make(map[string]any, len(s.Assets)+3)
	for k, v := range s.Assets {
		obj[k] = v
	}
	obj["id"] = s.ID
	obj["name"] = s.Name
	obj["roots"] = roots
	return json.Marshal(obj)
}

func nodeToWire(n *scene.Node) (wireNode, error) {
	t := n.Transform
	wn := wireNode{
		ID:        n.ID,
		Name:      n.Name,
		Transform: &t,
		Children:  make([]wireNode, 0, len(n.Children)),
	}
	kind, err := encodeKind(n.Kind)
	if err != nil {
		return wn, fmt.Errorf("node %s: %w", n.ID, err)
	}
	wn.Kind = kind
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		wc, err := nodeToWire(c)
		if err != nil {
			return wn, err
		}
		wn.Children = append(wn.Children, wc)
	}
	return wn, nil
}

func encodeKind(k scene.Kind) (json.RawMessage, error) {
	switch k := k.(type) {
	case nil:
		return nil, nil
	case scene.Screen:
		enabled := k.Enabled
		return json.Marshal(wireScreenKind{
			Type:    scene.TypeScreen,
			Pixels:  [2]float64{float64(k.Pixels[0]), float64(k.Pixels[1])},
			Enabled: &enabled,
		})
	case scene.Light:
		return json.Marshal(wireLightKind{
			Type: scene.TypeLight,
			Light: &wireLight{
				Type:      k.LightType,
				Color:     k.Color,
				Intensity: k.Intensity,
				Range:     k.Range,
				SpotAngle: k.SpotAngle,
			},
		})
	case scene.Camera:
		return json.Marshal(wireCameraKind{
			Type: scene.TypeCamera,
			Cam:  &wireCamera{FovDeg: k.FovDeg, Near: k.Near, Far: k.Far},
		})
	case scene.Mesh:
		return json.Marshal(wireMeshKind{
			Type: scene.TypeMesh,
			Mesh: &wireMeshComp{
				Mesh:       wireMeshRef{ID: k.MeshID, URI: k.URI, Node: k.Node},
				MaterialID: k.MaterialID,
			},
		})
	case scene.Unknown:
		obj := make(map[string]json.RawMessage, len(k.Fields)+1)
		for name, v := range k.Fields {
			obj[name] = v
		}
		tag, err := json.Marshal(k.Name)
		if err != nil {
			return nil, err
		}
		obj["type"] = tag
		return json.Marshal(obj)
	}
	return nil, fmt.Errorf("unsupported kind %T", k)
}
