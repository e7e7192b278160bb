// Package store holds the editor state: the open project, its scene, the
// playback clock, selection and console log. Every action publishes a new
// immutable State snapshot; readers never observe a partial update.
package store

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ivlev/constellation/internal/project"
	"github.com/ivlev/constellation/internal/scene"
)

const MaxLogEntries = 500

type ViewMode string

const (
	View2D ViewMode = "2d"
	View3D ViewMode = "3d"
)

type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

type LogEntry struct {
	ID      string
	Level   LogLevel
	Message string
	Time    time.Time
}

// State is a snapshot. Treat it and everything it references as read-only.
type State struct {
	Project *project.Project // nil until something is loaded or created
	Scene   *scene.Scene     // same pointer as Project.Scene once a project exists

	Time    float64
	Playing bool
	Stopped bool // rewound by Stop, as opposed to paused

	SelectedID      string   // scene node
	SelectedClipID  string   // primary timeline selection
	SelectedClipIDs []string // multi-selection, SelectedClipID first

	ViewMode          ViewMode
	GizmoMode         string
	ConsoleOpen       bool
	ShowOutputOverlay bool

	ImportingMediaCount int
	Logs                []LogEntry
}

// Listener is called after every published change, in publish order.
// It runs with the store's write lock held and must not call back into
// the store's actions.
type Listener func(prev, next *State)

type Store struct {
	mu   sync.Mutex
	cur  atomic.Pointer[State]
	subs []subscription
	next int
	now  func() time.Time
}

type subscription struct {
	id int
	fn Listener
}

func New() *Store {
	s := &Store{now: time.Now}
	s.cur.Store(&State{
		ViewMode:          View2D,
		GizmoMode:         "translate",
		ShowOutputOverlay: true,
		Stopped:           true,
		Logs:              []LogEntry{},
	})
	return s
}

// Snapshot returns the current state without locking.
func (s *Store) Snapshot() *State {
	return s.cur.Load()
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := make([]subscription, 0, len(s.subs))
		for _, sub := range s.subs {
			if sub.id != id {
				subs = append(subs, sub)
			}
		}
		s.subs = subs
	}
}

// update applies fn to a copy of the current state. When fn reports no
// change nothing is published.
func (s *Store) update(fn func(st *State) bool) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cur.Load()
	next := *prev
	if !fn(&next) {
		return prev
	}
	s.cur.Store(&next)
	for _, sub := range s.subs {
		sub.fn(prev, &next)
	}
	return &next
}

func (s *Store) appendLog(st *State, level LogLevel, msg string) {
	entry := LogEntry{
		ID:      scene.NewID("log"),
		Level:   level,
		Message: msg,
		Time:    s.now(),
	}
	logs := st.Logs
	if len(logs) >= MaxLogEntries {
		logs = logs[len(logs)-MaxLogEntries+1:]
	}
	next := make([]LogEntry, 0, len(logs)+1)
	next = append(next, logs...)
	st.Logs = append(next, entry)

	switch level {
	case LevelInfo:
		log.Printf("[*] %s", msg)
	default:
		log.Printf("[!] %s", msg)
	}
}

// AddLog appends a console entry. Only the last MaxLogEntries are kept.
func (s *Store) AddLog(level LogLevel, msg string) {
	s.update(func(st *State) bool {
		s.appendLog(st, level, msg)
		return true
	})
}

func (s *Store) ClearLogs() {
	s.update(func(st *State) bool {
		if len(st.Logs) == 0 {
			return false
		}
		st.Logs = []LogEntry{}
		return true
	})
}

// LoadProject replaces the open project. On a parse error the state is
// left unchanged and the error is returned.
func (s *Store) LoadProject(raw []byte) error {
	p, err := project.Parse(raw)
	if err != nil {
		return err
	}
	s.update(func(st *State) bool {
		st.Project = p
		st.Scene = p.Scene
		st.SelectedID = ""
		st.SelectedClipID = ""
		st.SelectedClipIDs = nil
		st.Time = 0
		s.appendLog(st, LevelInfo, fmt.Sprintf("Loaded project '%s'", p.Name))
		return true
	})
	return nil
}

// Wrapper serializes the open project for apply/export.
func (s *Store) Wrapper() ([]byte, error) {
	st := s.Snapshot()
	if st.Project == nil {
		return nil, fmt.Errorf("no project loaded")
	}
	return project.Marshal(st.Project)
}

// setScene stores sc and keeps the project pointing at it.
func setScene(st *State, sc *scene.Scene) bool {
	if sc == st.Scene {
		return false
	}
	st.Scene = sc
	if st.Project != nil {
		st.Project = st.Project.WithScene(sc)
	}
	return true
}

// setProject stores p and adopts its scene.
func setProject(st *State, p *project.Project) bool {
	if p == st.Project {
		return false
	}
	st.Project = p
	if p != nil {
		st.Scene = p.Scene
	}
	return true
}

// ensureProject returns the open project, or a default one around the
// current scene.
func ensureProject(st *State) *project.Project {
	if st.Project != nil {
		return st.Project
	}
	return project.Default(st.Scene)
}
