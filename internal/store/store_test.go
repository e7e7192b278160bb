package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ivlev/constellation/internal/project"
	"github.com/ivlev/constellation/internal/scene"
)

func f(v float64) *float64 { return &v }

func TestPlaybackScenario(t *testing.T) {
	s := New()
	s.Play()
	s.Tick(0.5)
	s.Tick(0.5)
	if got := s.Snapshot().Time; got != 1.0 {
		t.Errorf("time after two ticks: got %v, want 1.0", got)
	}

	s.Stop()
	st := s.Snapshot()
	if st.Time != 0 || st.Playing {
		t.Errorf("after stop: time=%v playing=%v", st.Time, st.Playing)
	}
}

func TestStoppedTracksTransport(t *testing.T) {
	s := New()
	if !s.Snapshot().Stopped {
		t.Error("new store should start stopped")
	}
	s.Play()
	s.Pause()
	if st := s.Snapshot(); st.Stopped || st.Time != 0 {
		t.Errorf("pause at 0: stopped=%v time=%v", st.Stopped, st.Time)
	}
	s.Seek(4)
	s.Stop()
	if st := s.Snapshot(); !st.Stopped || st.Time != 0 {
		t.Errorf("after stop: stopped=%v time=%v", st.Stopped, st.Time)
	}
}

func TestTickIgnoredWhilePaused(t *testing.T) {
	s := New()
	s.Seek(3)
	s.Tick(1)
	if got := s.Snapshot().Time; got != 3 {
		t.Errorf("paused tick moved time to %v", got)
	}

	s.Play()
	s.Tick(100)
	if got := s.Snapshot().Time; got != 103 {
		t.Errorf("time should not be clamped, got %v", got)
	}
	s.Pause()
	if s.Snapshot().Playing {
		t.Error("pause should stop playback")
	}
}

func TestEditorScenario(t *testing.T) {
	s := New()
	id := s.AddScreenNode(scene.ScreenSpec{Pixels: [2]uint32{1920, 1080}})

	st := s.Snapshot()
	if len(st.Scene.Roots) != 1 {
		t.Fatalf("roots: %d", len(st.Scene.Roots))
	}
	sk, ok := st.Scene.Roots[0].ScreenKind()
	if !ok || sk.Pixels != [2]uint32{1920, 1080} || !sk.Enabled {
		t.Errorf("screen: %+v", sk)
	}
	if st.SelectedID != id {
		t.Errorf("new screen should be selected")
	}
	if st.Project == nil || st.Project.Scene != st.Scene {
		t.Fatal("project should exist and share the scene")
	}

	clip := s.AddMediaClip(project.ClipSpec{Name: "a.png", URI: "file:///a.png", DurationSeconds: f(10)})
	if n := len(s.Snapshot().Project.Media); n != 1 {
		t.Fatalf("media: %d", n)
	}

	s.AddClipToTimeline(project.AddClipRequest{ClipID: clip.ID, StartAt: f(0)})
	tl := s.Snapshot().Project.Timeline
	if len(tl.Placements) != 1 {
		t.Fatalf("placements: %d", len(tl.Placements))
	}
	if pl := tl.Placements[0]; pl.Start != 0 || pl.Duration != 10 {
		t.Errorf("placement: %+v", pl)
	}
	if tl.DurationSeconds < 10 {
		t.Errorf("duration: %v", tl.DurationSeconds)
	}
}

func TestSceneEditsKeepProjectInSync(t *testing.T) {
	s := New()
	id := s.AddScreenNode(scene.ScreenSpec{})
	s.UpdateScreenPixels(id, 800, 600)
	s.UpdateNodeTransform(id, scene.TransformPatch{Position: &scene.Vec3{X: 2}})

	st := s.Snapshot()
	if st.Project.Scene != st.Scene {
		t.Fatal("project scene went stale")
	}
	n := scene.FindNode(st.Scene, id)
	if sk, _ := n.ScreenKind(); sk.Pixels != [2]uint32{800, 600} {
		t.Errorf("pixels: %v", sk.Pixels)
	}
	if n.Transform.Position.X != 2 {
		t.Errorf("position: %+v", n.Transform.Position)
	}

	s.RemoveScreenNode(id)
	st = s.Snapshot()
	if len(st.Scene.Roots) != 0 || st.SelectedID != "" {
		t.Errorf("remove: roots=%d selected=%q", len(st.Scene.Roots), st.SelectedID)
	}
}

func TestLoadProjectFailureLeavesState(t *testing.T) {
	s := New()
	s.AddScreenNode(scene.ScreenSpec{})
	before := s.Snapshot()

	if err := s.LoadProject([]byte("{not json")); err == nil {
		t.Fatal("expected error")
	}
	if s.Snapshot() != before {
		t.Error("state changed after failed load")
	}
}

func TestLoadProjectResets(t *testing.T) {
	s := New()
	s.SetSelected("x")
	s.Seek(12)
	if err := s.LoadProject([]byte(`{"project": {"id": "p", "name": "Demo"}}`)); err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	st := s.Snapshot()
	if st.Project.ID != "p" || st.Time != 0 || st.SelectedID != "" {
		t.Errorf("state after load: %+v", st)
	}
	if st.Scene != st.Project.Scene {
		t.Error("scene should come from the project")
	}
}

func TestRemoveMediaClipPrunesSelection(t *testing.T) {
	s := New()
	clip := s.AddMediaClip(project.ClipSpec{ID: "c1"})
	s.AddClipToTimeline(project.AddClipRequest{ClipID: clip.ID})
	plID := s.Snapshot().Project.Timeline.Placements[0].ID
	s.SetSelectedClips([]string{plID, clip.ID})

	s.RemoveMediaClip(clip.ID)
	st := s.Snapshot()
	if st.SelectedClipID != "" || len(st.SelectedClipIDs) != 0 {
		t.Errorf("selection not pruned: %q %v", st.SelectedClipID, st.SelectedClipIDs)
	}
	if len(st.Project.Timeline.Placements) != 0 {
		t.Error("placements not cascaded")
	}
}

func TestClipEditsThroughStore(t *testing.T) {
	s := New()
	clip := s.AddMediaClip(project.ClipSpec{DurationSeconds: f(4)})
	s.Seek(2)
	s.AddClipToTimeline(project.AddClipRequest{ClipID: clip.ID})
	sel := project.Selector{ClipID: clip.ID}

	s.UpdateClipDuration(sel, 10)
	s.UpdateClipTransform(sel, &project.AxisPatch{X: f(4.6)}, nil)
	s.UpdateClipStart(sel, 1)

	pl := s.Snapshot().Project.Timeline.Placements[0]
	if pl.Duration != 10 || pl.Position.X != 5 || pl.Start != 1 {
		t.Errorf("placement: %+v", pl)
	}

	s.SetMediaURI(clip.ID, "file:///cache/x.png")
	if got := s.Snapshot().Project.Media[0].URI; got != "file:///cache/x.png" {
		t.Errorf("uri: %q", got)
	}

	s.RemoveClip(pl.ID)
	if n := len(s.Snapshot().Project.Timeline.Placements); n != 0 {
		t.Errorf("placements left: %d", n)
	}
}

func TestAddClipWithoutProjectIsNoOp(t *testing.T) {
	s := New()
	before := s.Snapshot()
	s.AddClipToTimeline(project.AddClipRequest{ClipID: "nope"})
	if s.Snapshot() != before {
		t.Error("state changed")
	}
}

func TestInsertAtNegativePlayheadStartsAtZero(t *testing.T) {
	s := New()
	clip := s.AddMediaClip(project.ClipSpec{Name: "a"})
	s.Seek(-2)
	s.AddClipToTimeline(project.AddClipRequest{ClipID: clip.ID})

	pls := s.Snapshot().Project.Timeline.Placements
	if len(pls) != 1 || pls[0].Start != 0 {
		t.Errorf("placements: %+v", pls)
	}
}

func TestAddImageToShowCreatesProject(t *testing.T) {
	s := New()
	s.Seek(4)
	pl := s.AddImageToShow(project.ImageSpec{URI: "file:///slide.png"})
	st := s.Snapshot()
	if st.Project == nil || st.Scene == nil {
		t.Fatal("project should be created")
	}
	if pl.Start != 4 {
		t.Errorf("start: %v", pl.Start)
	}
	last := st.Logs[len(st.Logs)-1]
	if !strings.Contains(last.Message, "targeting scene") {
		t.Errorf("log: %q", last.Message)
	}
}

func TestImportCounterNeverNegative(t *testing.T) {
	s := New()
	s.EndImport()
	s.BeginImport()
	s.BeginImport()
	s.EndImport()
	s.EndImport()
	s.EndImport()
	if got := s.Snapshot().ImportingMediaCount; got != 0 {
		t.Errorf("count: %d", got)
	}
}

func TestLogsCapped(t *testing.T) {
	s := New()
	for i := 0; i < MaxLogEntries+20; i++ {
		s.AddLog(LevelInfo, "entry")
	}
	s.AddLog(LevelWarn, "last")
	logs := s.Snapshot().Logs
	if len(logs) != MaxLogEntries {
		t.Fatalf("logs: %d", len(logs))
	}
	if logs[len(logs)-1].Message != "last" || logs[len(logs)-1].Level != LevelWarn {
		t.Errorf("last entry: %+v", logs[len(logs)-1])
	}

	s.ClearLogs()
	if len(s.Snapshot().Logs) != 0 {
		t.Error("logs not cleared")
	}
}

func TestSelectionAndToggles(t *testing.T) {
	s := New()
	s.SetSelectedClip("a")
	if st := s.Snapshot(); st.SelectedClipID != "a" || len(st.SelectedClipIDs) != 1 {
		t.Errorf("single select: %+v", st)
	}
	s.SetSelectedClips([]string{"b", "c"})
	if st := s.Snapshot(); st.SelectedClipID != "b" || len(st.SelectedClipIDs) != 2 {
		t.Errorf("multi select: %+v", st)
	}
	s.SetSelectedClip("")
	if st := s.Snapshot(); st.SelectedClipID != "" || len(st.SelectedClipIDs) != 0 {
		t.Errorf("clear: %+v", st)
	}

	s.SetViewMode("bogus")
	if s.Snapshot().ViewMode != View2D {
		t.Error("unknown view mode should select 2d")
	}
	s.ToggleViewMode()
	if s.Snapshot().ViewMode != View3D {
		t.Error("toggle should select 3d")
	}
	s.ToggleConsole()
	s.ToggleOutputOverlay()
	if st := s.Snapshot(); !st.ConsoleOpen || st.ShowOutputOverlay {
		t.Errorf("toggles: console=%v overlay=%v", st.ConsoleOpen, st.ShowOutputOverlay)
	}
	s.SetGizmoMode("rotate")
	if s.Snapshot().GizmoMode != "rotate" {
		t.Error("gizmo mode")
	}
}

func TestSubscribe(t *testing.T) {
	s := New()
	var calls int
	var lastPrev, lastNext *State
	cancel := s.Subscribe(func(prev, next *State) {
		calls++
		lastPrev, lastNext = prev, next
	})

	s.Seek(1)
	if calls != 1 || lastPrev.Time != 0 || lastNext.Time != 1 {
		t.Errorf("calls=%d prev=%v next=%v", calls, lastPrev.Time, lastNext.Time)
	}
	s.Seek(1)
	if calls != 1 {
		t.Error("no-op should not notify")
	}

	cancel()
	s.Seek(2)
	if calls != 1 {
		t.Error("cancelled listener was called")
	}
}

func TestWrapper(t *testing.T) {
	s := New()
	if _, err := s.Wrapper(); err == nil {
		t.Error("expected error without a project")
	}
	s.AddScreenNode(scene.ScreenSpec{Name: "Main"})
	raw, err := s.Wrapper()
	if err != nil {
		t.Fatalf("Wrapper: %v", err)
	}
	p, err := project.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Scene.Roots) != 1 || p.Scene.Roots[0].Name != "Main" {
		t.Errorf("scene: %+v", p.Scene.Roots)
	}
}

func TestTickerAdvancesWhilePlaying(t *testing.T) {
	s := New()
	s.Play()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	tk := &Ticker{Store: s, Interval: 5 * time.Millisecond}
	if err := tk.Run(ctx); err != context.DeadlineExceeded {
		t.Errorf("Run: %v", err)
	}
	if got := s.Snapshot().Time; got <= 0 || got > 1 {
		t.Errorf("time after ticker: %v", got)
	}
}
