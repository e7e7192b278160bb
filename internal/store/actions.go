package store

import (
	"fmt"

	"github.com/ivlev/constellation/internal/project"
	"github.com/ivlev/constellation/internal/scene"
)

// Scene

// AddScreenNode appends a screen root, selects it and makes sure a project
// exists so the show can be applied.
func (s *Store) AddScreenNode(spec scene.ScreenSpec) string {
	var id string
	s.update(func(st *State) bool {
		var sc *scene.Scene
		sc, id = scene.AddScreenNode(st.Scene, spec)
		if st.Project == nil {
			st.Project = project.Default(sc)
		}
		setScene(st, sc)
		st.SelectedID = id
		return true
	})
	return id
}

func (s *Store) UpdateNodeTransform(id string, patch scene.TransformPatch) {
	s.update(func(st *State) bool {
		return setScene(st, scene.UpdateNodeTransform(st.Scene, id, patch))
	})
}

func (s *Store) UpdateScreenPixels(id string, w, h uint32) {
	s.update(func(st *State) bool {
		return setScene(st, scene.UpdateScreenPixels(st.Scene, id, w, h))
	})
}

func (s *Store) UpdateScreenEnabled(id string, enabled bool) {
	s.update(func(st *State) bool {
		return setScene(st, scene.UpdateScreenEnabled(st.Scene, id, enabled))
	})
}

// RemoveScreenNode removes a node and its subtree, clearing the node
// selection if it pointed at the removed node.
func (s *Store) RemoveScreenNode(id string) {
	s.update(func(st *State) bool {
		if !setScene(st, scene.RemoveNode(st.Scene, id)) {
			return false
		}
		if st.SelectedID != "" && scene.FindNode(st.Scene, st.SelectedID) == nil {
			st.SelectedID = ""
		}
		return true
	})
}

// Media and timeline

func (s *Store) AddMediaClip(spec project.ClipSpec) project.MediaClip {
	var clip project.MediaClip
	s.update(func(st *State) bool {
		var p *project.Project
		p, clip = project.AddMediaClip(ensureProject(st), spec)
		return setProject(st, p)
	})
	return clip
}

// AddClipToTimeline places a clip at req.StartAt, or at the playhead when
// StartAt is nil.
func (s *Store) AddClipToTimeline(req project.AddClipRequest) {
	s.update(func(st *State) bool {
		if st.Project == nil {
			return false
		}
		p := project.AddClipToTimeline(st.Project, req, st.Time)
		if !setProject(st, p) {
			return false
		}
		clip, _ := p.FindClip(req.ClipID)
		pl := p.Timeline.Placements[len(p.Timeline.Placements)-1]
		s.appendLog(st, LevelInfo, fmt.Sprintf("Inserted clip '%s' at %.2fs", clip.Name, pl.Start))
		return true
	})
}

// AddImageToShow adds an image clip and places it at the playhead.
func (s *Store) AddImageToShow(spec project.ImageSpec) project.Placement {
	var pl project.Placement
	s.update(func(st *State) bool {
		var p *project.Project
		p, pl = project.AddImageToShow(ensureProject(st), spec, st.Time)
		setProject(st, p)
		clip, _ := p.FindClip(pl.ClipID)
		target := pl.TargetNodeID
		if target == "" {
			target = "scene"
		}
		s.appendLog(st, LevelInfo, fmt.Sprintf("Added image '%s' targeting %s at %.2fs", clip.Name, target, pl.Start))
		return true
	})
	return pl
}

func (s *Store) UpdateClipTransform(sel project.Selector, pos, size *project.AxisPatch) {
	s.update(func(st *State) bool {
		return setProject(st, project.UpdateClipTransform(st.Project, sel, pos, size))
	})
}

func (s *Store) UpdateClipStart(sel project.Selector, startAt float64) {
	s.update(func(st *State) bool {
		return setProject(st, project.UpdateClipStart(st.Project, sel, startAt))
	})
}

func (s *Store) UpdateClipDuration(sel project.Selector, d float64) {
	s.update(func(st *State) bool {
		return setProject(st, project.UpdateClipDuration(st.Project, sel, d))
	})
}

func (s *Store) RemoveClip(placementID string) {
	s.update(func(st *State) bool {
		if !setProject(st, project.RemoveClip(st.Project, placementID)) {
			return false
		}
		pruneClipSelection(st)
		return true
	})
}

// RemoveMediaClip removes a clip from the bin together with its
// placements.
func (s *Store) RemoveMediaClip(clipID string) {
	s.update(func(st *State) bool {
		if !setProject(st, project.RemoveMediaClip(st.Project, clipID)) {
			return false
		}
		pruneClipSelection(st)
		return true
	})
}

// SetMediaURI points a clip at a new location, e.g. its cached copy.
func (s *Store) SetMediaURI(clipID, uri string) {
	s.update(func(st *State) bool {
		return setProject(st, project.SetMediaURI(st.Project, clipID, uri))
	})
}

// pruneClipSelection drops selected ids that no longer name a placement or
// a clip.
func pruneClipSelection(st *State) {
	exists := func(id string) bool {
		if _, ok := st.Project.FindPlacement(id); ok {
			return true
		}
		_, ok := st.Project.FindClip(id)
		return ok
	}
	if st.SelectedClipID != "" && !exists(st.SelectedClipID) {
		st.SelectedClipID = ""
	}
	if len(st.SelectedClipIDs) == 0 {
		return
	}
	ids := make([]string, 0, len(st.SelectedClipIDs))
	for _, id := range st.SelectedClipIDs {
		if exists(id) {
			ids = append(ids, id)
		}
	}
	st.SelectedClipIDs = ids
}

// Playback

func (s *Store) Play() {
	s.update(func(st *State) bool {
		st.Playing = true
		st.Stopped = false
		s.appendLog(st, LevelInfo, "Local: play")
		return true
	})
}

func (s *Store) Pause() {
	s.update(func(st *State) bool {
		st.Playing = false
		st.Stopped = false
		s.appendLog(st, LevelInfo, "Local: pause")
		return true
	})
}

// Stop pauses and rewinds to 0.
func (s *Store) Stop() {
	s.update(func(st *State) bool {
		st.Playing = false
		st.Stopped = true
		st.Time = 0
		s.appendLog(st, LevelInfo, "Local: stop")
		return true
	})
}

// Seek sets the playhead in any state. Time is not clamped.
func (s *Store) Seek(t float64) {
	s.update(func(st *State) bool {
		if st.Time == t {
			return false
		}
		st.Time = t
		return true
	})
}

// Tick advances the playhead by dt seconds while playing. There is no
// looping and no clamping to the timeline duration.
func (s *Store) Tick(dt float64) {
	s.update(func(st *State) bool {
		if !st.Playing || dt == 0 {
			return false
		}
		st.Time += dt
		return true
	})
}

// Selection and view

func (s *Store) SetSelected(id string) {
	s.update(func(st *State) bool {
		if st.SelectedID == id {
			return false
		}
		st.SelectedID = id
		return true
	})
}

// SetSelectedClip selects a single timeline item; "" clears the selection.
func (s *Store) SetSelectedClip(id string) {
	s.update(func(st *State) bool {
		st.SelectedClipID = id
		st.SelectedClipIDs = nil
		if id != "" {
			st.SelectedClipIDs = []string{id}
		}
		return true
	})
}

// SetSelectedClips replaces the multi-selection. The first id becomes the
// primary selection.
func (s *Store) SetSelectedClips(ids []string) {
	s.update(func(st *State) bool {
		st.SelectedClipIDs = append([]string(nil), ids...)
		st.SelectedClipID = ""
		if len(ids) > 0 {
			st.SelectedClipID = ids[0]
		}
		return true
	})
}

func (s *Store) SetGizmoMode(mode string) {
	s.update(func(st *State) bool {
		if st.GizmoMode == mode {
			return false
		}
		st.GizmoMode = mode
		return true
	})
}

// SetViewMode accepts "3d"; anything else selects 2D.
func (s *Store) SetViewMode(mode ViewMode) {
	if mode != View3D {
		mode = View2D
	}
	s.update(func(st *State) bool {
		if st.ViewMode == mode {
			return false
		}
		st.ViewMode = mode
		return true
	})
}

func (s *Store) ToggleViewMode() {
	s.update(func(st *State) bool {
		if st.ViewMode == View2D {
			st.ViewMode = View3D
		} else {
			st.ViewMode = View2D
		}
		return true
	})
}

func (s *Store) ToggleConsole() {
	s.update(func(st *State) bool {
		st.ConsoleOpen = !st.ConsoleOpen
		return true
	})
}

func (s *Store) ToggleOutputOverlay() {
	s.update(func(st *State) bool {
		st.ShowOutputOverlay = !st.ShowOutputOverlay
		return true
	})
}

// Import progress

// BeginImport and EndImport maintain an advisory in-flight counter for the
// UI spinner. It never goes below zero.
func (s *Store) BeginImport() {
	s.update(func(st *State) bool {
		st.ImportingMediaCount++
		return true
	})
}

func (s *Store) EndImport() {
	s.update(func(st *State) bool {
		if st.ImportingMediaCount == 0 {
			return false
		}
		st.ImportingMediaCount--
		return true
	})
}
