package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/ivlev/constellation/internal/scene"
)

// Wire format of project files (editor-facing JSON).

type wireWrapper struct {
	Project *wireProject `json:"project"`
}

type wireProject struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Scene    json.RawMessage `json:"scene"`
	Media    []wireClip      `json:"media"`
	Timeline *wireTimeline   `json:"timeline"`
}

type wireScene struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Roots []wireNode `json:"roots"`
}

type wireNode struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Transform *scene.Transform `json:"transform,omitempty"`
	Children  []wireNode       `json:"children"`
	Kind      json.RawMessage  `json:"kind,omitempty"`

	// Legacy flat components, read only.
	Screen *legacyScreen `json:"screen,omitempty"`
	Light  *wireLight    `json:"light,omitempty"`
	Camera *wireCamera   `json:"camera,omitempty"`
	Mesh   *wireMeshComp `json:"mesh,omitempty"`
}

type legacyScreen struct {
	PixelsX float64 `json:"pixels_x"`
	PixelsY float64 `json:"pixels_y"`
}

type wireLight struct {
	Type      string      `json:"type"`
	Color     scene.Color `json:"color"`
	Intensity float64     `json:"intensity"`
	Range     float64     `json:"range"`
	SpotAngle float64     `json:"spot_angle,omitempty"`
}

type wireCamera struct {
	FovDeg float64 `json:"fov_deg"`
	Near   float64 `json:"near"`
	Far    float64 `json:"far"`
}

type wireMeshRef struct {
	ID   string `json:"id"`
	URI  string `json:"uri"`
	Node string `json:"node,omitempty"`
}

type wireMeshComp struct {
	Mesh       wireMeshRef `json:"mesh"`
	MaterialID string      `json:"material_id,omitempty"`
}

type wireScreenKind struct {
	Type    string     `json:"type"`
	Pixels  [2]float64 `json:"pixels"`
	Enabled *bool      `json:"enabled,omitempty"`
}

type wireLightKind struct {
	Type  string     `json:"type"`
	Light *wireLight `json:"light"`
}

type wireCameraKind struct {
	Type string      `json:"type"`
	Cam  *wireCamera `json:"cam"`
}

type wireMeshKind struct {
	Type string        `json:"type"`
	Mesh *wireMeshComp `json:"mesh"`
}

type wireClip struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	URI             string  `json:"uri"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type wirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wirePlacement struct {
	ID             string     `json:"id"`
	ClipID         string     `json:"clip_id"`
	TargetNodeID   string     `json:"target_node_id"`
	InSeconds      *float64   `json:"in_seconds"`
	OutSeconds     *float64   `json:"out_seconds"`
	StartAtSeconds *float64   `json:"start_at_seconds"`
	Start          *float64   `json:"start"`
	Duration       *float64   `json:"duration"`
	Position       *wirePoint `json:"position"`
	Scale          *wirePoint `json:"scale"`
}

type wireTrack struct {
	Media *wirePlacement `json:"media"`
}

type wireTimeline struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Tracks          []wireTrack `json:"tracks"`
	Events          []Event     `json:"events"`
	DurationSeconds *float64    `json:"duration_seconds"`
}

// Parse reads a project file. Both {"project": {...}} and a bare project
// object are accepted.
func Parse(raw []byte) (*Project, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("invalid project json: %w", err)
	}
	if probe == nil {
		return nil, fmt.Errorf("invalid project json: expected an object")
	}
	body := raw
	if inner, ok := probe["project"]; ok && !isNull(inner) {
		body = inner
	}

	var wp wireProject
	if err := json.Unmarshal(body, &wp); err != nil {
		return nil, fmt.Errorf("invalid project json: %w", err)
	}
	return fromWire(&wp)
}

// ParseScene reads a bare scene object.
func ParseScene(raw []byte) (*scene.Scene, error) {
	var ws wireScene
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("invalid scene json: %w", err)
	}
	return parseScene(&ws, raw)
}

func fromWire(wp *wireProject) (*Project, error) {
	p := &Project{ID: wp.ID, Name: wp.Name, Media: []MediaClip{}}

	if !isNull(wp.Scene) {
		s, err := ParseScene(wp.Scene)
		if err != nil {
			return nil, err
		}
		p.Scene = s
	} else {
		p.Scene = scene.New("scene", "Scene")
	}

	for _, c := range wp.Media {
		p.Media = append(p.Media, MediaClip{
			ID:              c.ID,
			Name:            c.Name,
			URI:             c.URI,
			DurationSeconds: c.DurationSeconds,
		})
	}

	p.Timeline = emptyTimeline()
	if wt := wp.Timeline; wt != nil {
		p.Timeline.ID = wt.ID
		p.Timeline.Name = wt.Name
		if wt.DurationSeconds != nil {
			p.Timeline.DurationSeconds = *wt.DurationSeconds
		}
		if wt.Events != nil {
			p.Timeline.Events = wt.Events
		}
		for _, tr := range wt.Tracks {
			if tr.Media == nil {
				continue
			}
			p.Timeline.Placements = append(p.Timeline.Placements, parsePlacement(tr.Media))
		}
		p.Timeline.DurationSeconds = math.Max(p.Timeline.DurationSeconds, p.Timeline.MaxEnd())
	}
	return p, nil
}

func parseScene(ws *wireScene, raw []byte) (*scene.Scene, error) {
	s := &scene.Scene{ID: ws.ID, Name: ws.Name, Roots: make([]*scene.Node, 0, len(ws.Roots))}
	for i := range ws.Roots {
		n, err := parseNode(&ws.Roots[i])
		if err != nil {
			return nil, err
		}
		s.Roots = append(s.Roots, n)
	}
	s.Assets = sceneAssets(raw)
	return s, nil
}

func parseNode(wn *wireNode) (*scene.Node, error) {
	n := &scene.Node{
		ID:        wn.ID,
		Name:      wn.Name,
		Transform: scene.Identity(),
		Children:  make([]*scene.Node, 0, len(wn.Children)),
	}
	if wn.Transform != nil {
		n.Transform = *wn.Transform
	}
	kind, err := migrateKind(wn)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", wn.ID, err)
	}
	n.Kind = kind
	for i := range wn.Children {
		c, err := parseNode(&wn.Children[i])
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, c)
	}
	return n, nil
}

// migrateKind is the only place that knows about historical node kind
// encodings: the current tagged "kind" object and the legacy flat
// screen/light/camera/mesh fields. On legacy nodes carrying several
// components the last one in that order wins.
func migrateKind(wn *wireNode) (scene.Kind, error) {
	if len(wn.Kind) > 0 && !isNull(wn.Kind) {
		return decodeKind(wn.Kind)
	}

	var k scene.Kind
	if wn.Screen != nil {
		k = scene.Screen{
			Pixels:  [2]uint32{toPixels(wn.Screen.PixelsX), toPixels(wn.Screen.PixelsY)},
			Enabled: true,
		}
	}
	if wn.Light != nil {
		k = lightFromWire(wn.Light)
	}
	if wn.Camera != nil {
		k = scene.Camera{FovDeg: wn.Camera.FovDeg, Near: wn.Camera.Near, Far: wn.Camera.Far}
	}
	if wn.Mesh != nil {
		k = meshFromWire(wn.Mesh)
	}
	return k, nil
}

func decodeKind(raw json.RawMessage) (scene.Kind, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("invalid kind: %w", err)
	}

	switch tag.Type {
	case scene.TypeScreen:
		var w wireScreenKind
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("invalid screen kind: %w", err)
		}
		enabled := true
		if w.Enabled != nil {
			enabled = *w.Enabled
		}
		return scene.Screen{
			Pixels:  [2]uint32{toPixels(w.Pixels[0]), toPixels(w.Pixels[1])},
			Enabled: enabled,
		}, nil
	case scene.TypeLight:
		var w wireLightKind
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("invalid light kind: %w", err)
		}
		if w.Light == nil {
			return scene.Light{}, nil
		}
		return lightFromWire(w.Light), nil
	case scene.TypeCamera:
		var w wireCameraKind
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("invalid camera kind: %w", err)
		}
		if w.Cam == nil {
			return scene.Camera{}, nil
		}
		return scene.Camera{FovDeg: w.Cam.FovDeg, Near: w.Cam.Near, Far: w.Cam.Far}, nil
	case scene.TypeMesh:
		var w wireMeshKind
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("invalid mesh kind: %w", err)
		}
		if w.Mesh == nil {
			return scene.Mesh{}, nil
		}
		return meshFromWire(w.Mesh), nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("invalid kind: %w", err)
	}
	delete(fields, "type")
	return scene.Unknown{Name: tag.Type, Fields: fields}, nil
}

func lightFromWire(w *wireLight) scene.Light {
	return scene.Light{
		LightType: w.Type,
		Color:     w.Color,
		Intensity: w.Intensity,
		Range:     w.Range,
		SpotAngle: w.SpotAngle,
	}
}

func meshFromWire(w *wireMeshComp) scene.Mesh {
	return scene.Mesh{
		MeshID:     w.Mesh.ID,
		URI:        w.Mesh.URI,
		Node:       w.Mesh.Node,
		MaterialID: w.MaterialID,
	}
}

func parsePlacement(w *wirePlacement) Placement {
	pl := Placement{
		ID:           w.ID,
		ClipID:       w.ClipID,
		TargetNodeID: w.TargetNodeID,
	}
	if w.InSeconds != nil {
		pl.InSeconds = *w.InSeconds
	}
	if w.OutSeconds != nil {
		pl.OutSeconds = *w.OutSeconds
	}
	switch {
	case w.Start != nil:
		pl.Start = *w.Start
	case w.StartAtSeconds != nil:
		pl.Start = *w.StartAtSeconds
	}
	if w.Duration != nil {
		pl.Duration = *w.Duration
	} else {
		pl.Duration = math.Max(0, pl.OutSeconds-pl.InSeconds)
	}
	pl.Start = math.Max(0, pl.Start)
	pl.Duration = math.Max(0, pl.Duration)
	if w.OutSeconds == nil {
		pl.OutSeconds = pl.InSeconds + pl.Duration
	}
	if w.Position != nil {
		pl.Position = Point{X: roundPx(w.Position.X, 0), Y: roundPx(w.Position.Y, 0)}
	}
	if w.Scale != nil {
		pl.Scale = Size{X: roundPx(w.Scale.X, 0), Y: roundPx(w.Scale.Y, 0)}
	}
	return pl
}

func sceneAssets(raw []byte) map[string]json.RawMessage {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil
	}
	assets := map[string]json.RawMessage{}
	for k, v := range all {
		switch k {
		case "id", "name", "roots":
			continue
		}
		assets[k] = v
	}
	if len(assets) == 0 {
		return nil
	}
	return assets
}

func toPixels(v float64) uint32 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
