package scene

import "fmt"

// FindNode searches the scene depth-first, roots in order, children in order.
func FindNode(s *Scene, id string) *Node {
	if s == nil {
		return nil
	}
	return findIn(s.Roots, id)
}

func findIn(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.ID == id {
			return n
		}
		if found := findIn(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits every node depth-first. Returning false from fn skips the
// node's children.
func Walk(s *Scene, fn func(n *Node, depth int) bool) {
	if s == nil {
		return
	}
	walk(s.Roots, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(n *Node, depth int) bool) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if fn(n, depth) {
			walk(n.Children, depth+1, fn)
		}
	}
}

// UpdateNode returns a new scene in which the node with the given id is
// replaced by fn(node). Ancestors on the path are copied, every other
// subtree is shared with the input. If id is absent, s itself is returned.
func UpdateNode(s *Scene, id string, fn func(Node) Node) *Scene {
	if s == nil {
		return nil
	}
	roots, changed := updateIn(s.Roots, id, fn)
	if !changed {
		return s
	}
	next := *s
	next.Roots = roots
	return &next
}

func updateIn(nodes []*Node, id string, fn func(Node) Node) ([]*Node, bool) {
	for i, n := range nodes {
		if n == nil {
			continue
		}
		repl, ok := updateOne(n, id, fn)
		if !ok {
			continue
		}
		out := make([]*Node, len(nodes))
		copy(out, nodes)
		out[i] = repl
		return out, true
	}
	return nodes, false
}

func updateOne(n *Node, id string, fn func(Node) Node) (*Node, bool) {
	if n.ID == id {
		next := fn(*n)
		return &next, true
	}
	children, ok := updateIn(n.Children, id, fn)
	if !ok {
		return n, false
	}
	next := *n
	next.Children = children
	return &next, true
}

// RemoveNode removes the node and its subtree wherever it appears.
// If id is absent, s itself is returned.
func RemoveNode(s *Scene, id string) *Scene {
	if s == nil {
		return nil
	}
	roots, changed := removeIn(s.Roots, id)
	if !changed {
		return s
	}
	next := *s
	next.Roots = roots
	return &next
}

func removeIn(nodes []*Node, id string) ([]*Node, bool) {
	changed := false
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.ID == id {
			changed = true
			continue
		}
		children, ok := removeIn(n.Children, id)
		if ok {
			cp := *n
			cp.Children = children
			n = &cp
			changed = true
		}
		out = append(out, n)
	}
	if !changed {
		return nodes, false
	}
	return out, true
}

// ScreenSpec describes a screen node to add.
type ScreenSpec struct {
	Name     string
	Pixels   [2]uint32 // zero means 1920x1080
	Position *Vec3
	Scale    *Vec3
}

// AddScreenNode appends an enabled screen node to the roots of s. A nil
// scene is replaced by a fresh empty one.
func AddScreenNode(s *Scene, spec ScreenSpec) (*Scene, string) {
	if s == nil {
		s = New("scene", "Scene")
	}
	px := spec.Pixels
	if px == [2]uint32{} {
		px = [2]uint32{1920, 1080}
	}
	name := spec.Name
	if name == "" {
		name = fmt.Sprintf("Screen %d", len(s.Roots)+1)
	}
	t := Identity()
	if spec.Position != nil {
		t.Position = *spec.Position
	}
	if spec.Scale != nil {
		t.Scale = *spec.Scale
	}
	node := &Node{
		ID:        NewID("screen"),
		Name:      name,
		Transform: t,
		Children:  []*Node{},
		Kind:      Screen{Pixels: px, Enabled: true},
	}

	next := *s
	next.Roots = make([]*Node, 0, len(s.Roots)+1)
	next.Roots = append(next.Roots, s.Roots...)
	next.Roots = append(next.Roots, node)
	return &next, node.ID
}

// TransformPatch carries the transform parts to replace; nil parts are kept.
type TransformPatch struct {
	Position *Vec3
	Rotation *Quat
	Scale    *Vec3
}

func UpdateNodeTransform(s *Scene, id string, patch TransformPatch) *Scene {
	return UpdateNode(s, id, func(n Node) Node {
		if patch.Position != nil {
			n.Transform.Position = *patch.Position
		}
		if patch.Rotation != nil {
			n.Transform.Rotation = *patch.Rotation
		}
		if patch.Scale != nil {
			n.Transform.Scale = *patch.Scale
		}
		return n
	})
}

// UpdateScreenPixels changes the resolution of a screen node. Other kinds
// are left untouched.
func UpdateScreenPixels(s *Scene, id string, w, h uint32) *Scene {
	return UpdateNode(s, id, func(n Node) Node {
		if scr, ok := n.Kind.(Screen); ok {
			scr.Pixels = [2]uint32{w, h}
			n.Kind = scr
		}
		return n
	})
}

func UpdateScreenEnabled(s *Scene, id string, enabled bool) *Scene {
	return UpdateNode(s, id, func(n Node) Node {
		if scr, ok := n.Kind.(Screen); ok {
			scr.Enabled = enabled
			n.Kind = scr
		}
		return n
	})
}

// Screens returns every screen node in depth-first order.
func Screens(s *Scene) []*Node {
	var out []*Node
	Walk(s, func(n *Node, _ int) bool {
		if _, ok := n.Kind.(Screen); ok {
			out = append(out, n)
		}
		return true
	})
	return out
}

// FirstScreen returns preferID if it names a screen, otherwise the first
// screen found breadth-first.
func FirstScreen(s *Scene, preferID string) *Node {
	if s == nil {
		return nil
	}
	if preferID != "" {
		if n := FindNode(s, preferID); n != nil {
			if _, ok := n.Kind.(Screen); ok {
				return n
			}
		}
	}
	queue := append([]*Node(nil), s.Roots...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == nil {
			continue
		}
		if _, ok := n.Kind.(Screen); ok {
			return n
		}
		queue = append(queue, n.Children...)
	}
	return nil
}
