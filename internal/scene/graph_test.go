package scene

import (
	"math"
	"strings"
	"testing"
)

func testScene() *Scene {
	leaf := &Node{ID: "leaf", Name: "Leaf", Transform: Identity()}
	group := &Node{ID: "group", Name: "Group", Transform: Identity(), Children: []*Node{leaf}}
	cam := &Node{ID: "cam", Name: "Camera", Transform: Identity(), Kind: Camera{FovDeg: 60, Near: 0.1, Far: 100}}
	return &Scene{ID: "scene", Name: "Scene", Roots: []*Node{group, cam}}
}

func TestFindNode(t *testing.T) {
	s := testScene()

	if n := FindNode(s, "leaf"); n == nil || n.Name != "Leaf" {
		t.Errorf("Expected to find leaf, got %+v", n)
	}
	if n := FindNode(s, "cam"); n == nil || KindType(n.Kind) != TypeCamera {
		t.Errorf("Expected camera node, got %+v", n)
	}
	if n := FindNode(s, "missing"); n != nil {
		t.Errorf("Expected nil for missing id, got %+v", n)
	}
	if n := FindNode(nil, "leaf"); n != nil {
		t.Errorf("Expected nil for nil scene")
	}
}

func TestUpdateNodeCopiesPath(t *testing.T) {
	s := testScene()

	next := UpdateNode(s, "leaf", func(n Node) Node {
		n.Name = "Renamed"
		return n
	})

	if next == s {
		t.Fatal("Expected a new scene value")
	}
	if FindNode(next, "leaf").Name != "Renamed" {
		t.Errorf("Leaf was not updated")
	}
	if FindNode(s, "leaf").Name != "Leaf" {
		t.Errorf("Original scene was mutated")
	}
	if next.Roots[0] == s.Roots[0] {
		t.Errorf("Ancestor on the path should be copied")
	}
	if next.Roots[1] != s.Roots[1] {
		t.Errorf("Sibling subtree should be shared")
	}
}

func TestUpdateAndRemoveMissingAreNoOps(t *testing.T) {
	s := testScene()

	if got := UpdateNode(s, "nope", func(n Node) Node { n.Name = "x"; return n }); got != s {
		t.Errorf("UpdateNode with unknown id should return the same scene")
	}
	if got := RemoveNode(s, "nope"); got != s {
		t.Errorf("RemoveNode with unknown id should return the same scene")
	}
}

func TestRemoveNodeSubtree(t *testing.T) {
	s := testScene()

	next := RemoveNode(s, "group")
	if len(next.Roots) != 1 || next.Roots[0].ID != "cam" {
		t.Fatalf("Expected only cam root left, got %d roots", len(next.Roots))
	}
	if FindNode(next, "leaf") != nil {
		t.Errorf("Child of removed node is still reachable")
	}

	nested := RemoveNode(s, "leaf")
	if g := FindNode(nested, "group"); g == nil || len(g.Children) != 0 {
		t.Errorf("Expected group without children after removing leaf")
	}
	if len(FindNode(s, "group").Children) != 1 {
		t.Errorf("Original scene was mutated")
	}
}

func TestAddScreenNode(t *testing.T) {
	s, id := AddScreenNode(nil, ScreenSpec{Pixels: [2]uint32{1920, 1080}})

	if len(s.Roots) != 1 {
		t.Fatalf("Expected 1 root, got %d", len(s.Roots))
	}
	if !strings.HasPrefix(id, "screen-") {
		t.Errorf("Unexpected id %q", id)
	}
	n := s.Roots[0]
	scr, ok := n.ScreenKind()
	if !ok {
		t.Fatalf("Expected screen kind, got %T", n.Kind)
	}
	if scr.Pixels != [2]uint32{1920, 1080} || !scr.Enabled {
		t.Errorf("Unexpected screen %+v", scr)
	}
	if n.Transform != Identity() {
		t.Errorf("Expected identity transform, got %+v", n.Transform)
	}
	if n.Name != "Screen 1" {
		t.Errorf("Expected default name, got %q", n.Name)
	}

	pos := Vec3{X: 2, Y: 1}
	s2, id2 := AddScreenNode(s, ScreenSpec{Name: "Side", Position: &pos})
	if id2 == id {
		t.Errorf("Expected distinct ids")
	}
	if len(s.Roots) != 1 || len(s2.Roots) != 2 {
		t.Errorf("AddScreenNode must not mutate its input")
	}
	if got := FindNode(s2, id2).Transform.Position; got != pos {
		t.Errorf("Position override ignored: %+v", got)
	}
}

func TestScreenUpdatesIgnoreOtherKinds(t *testing.T) {
	s, id := AddScreenNode(testScene(), ScreenSpec{})

	s = UpdateScreenPixels(s, id, 800, 600)
	s = UpdateScreenEnabled(s, id, false)
	scr, _ := FindNode(s, id).ScreenKind()
	if scr.Pixels != [2]uint32{800, 600} || scr.Enabled {
		t.Errorf("Unexpected screen after update: %+v", scr)
	}

	before := FindNode(s, "cam").Kind
	s = UpdateScreenPixels(s, "cam", 1, 1)
	if FindNode(s, "cam").Kind != before {
		t.Errorf("Camera kind must not change")
	}

	if got := len(Screens(s)); got != 1 {
		t.Errorf("Expected 1 screen, got %d", got)
	}
}

func TestScreenInstancesComposeParent(t *testing.T) {
	child := &Node{
		ID:        "child",
		Transform: Transform{Position: Vec3{X: 1}, Rotation: Quat{W: 1}, Scale: Vec3{X: 1, Y: 1, Z: 1}},
		Kind:      Screen{Pixels: [2]uint32{100, 100}, Enabled: true},
	}
	// 90 degrees about Z.
	h := math.Sqrt2 / 2
	parent := &Node{
		ID:        "parent",
		Transform: Transform{Position: Vec3{X: 10}, Rotation: Quat{Z: h, W: h}, Scale: Vec3{X: 2, Y: 2, Z: 2}},
		Children:  []*Node{child},
	}
	inst := ScreenInstances(&Scene{Roots: []*Node{parent}})
	if len(inst) != 1 {
		t.Fatalf("Expected 1 instance, got %d", len(inst))
	}
	p := inst[0].World.Position
	if math.Abs(p.X-10) > 1e-9 || math.Abs(p.Y-2) > 1e-9 {
		t.Errorf("Expected world position (10, 2), got (%f, %f)", p.X, p.Y)
	}
}
