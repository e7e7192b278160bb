package scene

// Instance is a screen node placed in world space.
type Instance struct {
	NodeID string
	World  Transform
	Screen Screen
}

// ScreenInstances composes transforms from the roots down and returns the
// world transform of every screen node, depth-first.
func ScreenInstances(s *Scene) []Instance {
	var out []Instance
	if s == nil {
		return out
	}
	for _, n := range s.Roots {
		collectInstances(n, Identity(), &out)
	}
	return out
}

func collectInstances(n *Node, parent Transform, out *[]Instance) {
	if n == nil {
		return
	}
	world := Compose(parent, n.Transform)
	if scr, ok := n.Kind.(Screen); ok {
		*out = append(*out, Instance{NodeID: n.ID, World: world, Screen: scr})
	}
	for _, c := range n.Children {
		collectInstances(c, world, out)
	}
}

// Compose returns parent*local. Non-uniform scale combined with rotation is
// approximated per axis, which is exact for the screen layouts we handle.
func Compose(parent, local Transform) Transform {
	scaled := Vec3{
		X: local.Position.X * parent.Scale.X,
		Y: local.Position.Y * parent.Scale.Y,
		Z: local.Position.Z * parent.Scale.Z,
	}
	rotated := parent.Rotation.Rotate(scaled)
	return Transform{
		Position: Vec3{
			X: parent.Position.X + rotated.X,
			Y: parent.Position.Y + rotated.Y,
			Z: parent.Position.Z + rotated.Z,
		},
		Rotation: parent.Rotation.Mul(local.Rotation),
		Scale: Vec3{
			X: parent.Scale.X * local.Scale.X,
			Y: parent.Scale.Y * local.Scale.Y,
			Z: parent.Scale.Z * local.Scale.Z,
		},
	}
}

// Mul returns the Hamilton product q*r.
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

// Rotate applies the rotation to v. q is assumed to be normalized.
func (q Quat) Rotate(v Vec3) Vec3 {
	p := Quat{X: v.X, Y: v.Y, Z: v.Z}
	conj := Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
	r := q.Mul(p).Mul(conj)
	return Vec3{X: r.X, Y: r.Y, Z: r.Z}
}
