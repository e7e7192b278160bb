package scene

import "encoding/json"

const (
	TypeScreen = "screen"
	TypeLight  = "light"
	TypeCamera = "camera"
	TypeMesh   = "mesh"
)

// Kind is the typed component attached to a node. The concrete types are
// Screen, Light, Camera, Mesh and Unknown.
type Kind interface {
	Type() string
	isKind()
}

// Screen is a virtual output surface with a pixel resolution.
type Screen struct {
	Pixels  [2]uint32
	Enabled bool
}

// Color is a linear RGBA color.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

type Light struct {
	LightType string // POINT, DIRECTIONAL, SPOT
	Color     Color
	Intensity float64
	Range     float64
	SpotAngle float64
}

type Camera struct {
	FovDeg float64
	Near   float64
	Far    float64
}

type Mesh struct {
	MeshID     string
	URI        string
	Node       string
	MaterialID string
}

// Unknown keeps a kind whose type this version does not understand, so it
// can be written back without loss.
type Unknown struct {
	Name   string
	Fields map[string]json.RawMessage
}

func (Screen) Type() string    { return TypeScreen }
func (Light) Type() string     { return TypeLight }
func (Camera) Type() string    { return TypeCamera }
func (Mesh) Type() string      { return TypeMesh }
func (u Unknown) Type() string { return u.Name }

func (Screen) isKind()  {}
func (Light) isKind()   {}
func (Camera) isKind()  {}
func (Mesh) isKind()    {}
func (Unknown) isKind() {}

// KindType returns the kind tag of a node, or "" for a group node.
func KindType(k Kind) string {
	if k == nil {
		return ""
	}
	return k.Type()
}
