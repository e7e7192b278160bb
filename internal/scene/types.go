package scene

import "encoding/json"

// Vec3 is a position or scale in scene units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quat is a rotation quaternion (x, y, z, w).
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Transform is the local transform owned by every node.
type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Quat `json:"rotation"`
	Scale    Vec3 `json:"scale"`
}

// Identity returns the default transform: origin, no rotation, unit scale.
func Identity() Transform {
	return Transform{
		Position: Vec3{},
		Rotation: Quat{W: 1},
		Scale:    Vec3{X: 1, Y: 1, Z: 1},
	}
}

// Node is a scene graph node. Children are owned by the node.
type Node struct {
	ID        string
	Name      string
	Transform Transform
	Children  []*Node
	Kind      Kind // nil for a plain group
}

// Scene owns all of its nodes through Roots.
type Scene struct {
	ID    string
	Name  string
	Roots []*Node

	// Assets holds scene-level tables the editor does not interpret
	// (materials, meshes). They are written back as they were read.
	Assets map[string]json.RawMessage
}

// New returns an empty scene.
func New(id, name string) *Scene {
	return &Scene{ID: id, Name: name, Roots: []*Node{}}
}

// ScreenKind returns the node's screen component, if it is a screen.
func (n *Node) ScreenKind() (Screen, bool) {
	if n == nil {
		return Screen{}, false
	}
	s, ok := n.Kind.(Screen)
	return s, ok
}
