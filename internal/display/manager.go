// Package display maps enabled screen nodes to output windows and feeds
// those windows with project snapshots and playhead updates.
package display

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"sync"

	"github.com/ivlev/constellation/internal/scene"
	"github.com/ivlev/constellation/internal/store"
)

const minWindowSize = 100

// Window describes one display window for a screen node.
type Window struct {
	ScreenID string
	Label    string
	Width    uint32 // screen pixels
	Height   uint32
	URL      string
}

// OuterSize is the size the window is created with, at least 100x100.
func (w Window) OuterSize() (int, int) {
	return max(minWindowSize, int(w.Width)), max(minWindowSize, int(w.Height))
}

// WindowHost creates and destroys windows. Labels are unique per screen.
type WindowHost interface {
	Open(w Window) error
	Close(label string) error
}

func Label(screenID string) string {
	return "display-" + screenID
}

// WindowURL is the path a display window loads.
func WindowURL(screenID string, w, h uint32) string {
	return fmt.Sprintf("/?display=1&screenId=%s&w=%d&h=%d", url.QueryEscape(screenID), w, h)
}

// Desired returns a window for every enabled screen with positive pixel
// dimensions, in scene order.
func Desired(s *scene.Scene) []Window {
	var out []Window
	for _, n := range scene.Screens(s) {
		sk, _ := n.ScreenKind()
		if !sk.Enabled || sk.Pixels[0] == 0 || sk.Pixels[1] == 0 {
			continue
		}
		out = append(out, Window{
			ScreenID: n.ID,
			Label:    Label(n.ID),
			Width:    sk.Pixels[0],
			Height:   sk.Pixels[1],
			URL:      WindowURL(n.ID, sk.Pixels[0], sk.Pixels[1]),
		})
	}
	return out
}

// Manager keeps the set of open windows in line with the scene.
type Manager struct {
	Host WindowHost

	mu   sync.Mutex
	open map[string]Window
}

func NewManager(host WindowHost) *Manager {
	return &Manager{Host: host, open: map[string]Window{}}
}

// Reconcile closes windows whose screen was removed, disabled, zeroed or
// resized, then opens the missing ones. Host errors are collected; the
// remaining windows are still processed.
func (m *Manager) Reconcile(s *scene.Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := map[string]Window{}
	desired := Desired(s)
	for _, w := range desired {
		want[w.Label] = w
	}

	var errs []error
	for _, label := range sortedLabels(m.open) {
		cur := m.open[label]
		if w, ok := want[label]; ok && w.Width == cur.Width && w.Height == cur.Height {
			continue
		}
		if err := m.Host.Close(label); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", label, err))
		}
		delete(m.open, label)
		log.Printf("[*] Окно %s закрыто", label)
	}
	for _, w := range desired {
		if _, ok := m.open[w.Label]; ok {
			continue
		}
		if err := m.Host.Open(w); err != nil {
			errs = append(errs, fmt.Errorf("open %s: %w", w.Label, err))
			continue
		}
		m.open[w.Label] = w
		log.Printf("[*] Окно %s открыто (%dx%d)", w.Label, w.Width, w.Height)
	}
	return errors.Join(errs...)
}

// Open returns the open windows sorted by label.
func (m *Manager) Open() []Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Window, 0, len(m.open))
	for _, label := range sortedLabels(m.open) {
		out = append(out, m.open[label])
	}
	return out
}

// CloseAll closes every open window.
func (m *Manager) CloseAll() error {
	return m.Reconcile(nil)
}

// Run reconciles against the store's scene until ctx is done. Scene
// changes are coalesced: only the latest scene is applied.
func (m *Manager) Run(ctx context.Context, st *store.Store) error {
	scenes := make(chan *scene.Scene, 1)
	var pushMu sync.Mutex
	push := func(s *scene.Scene) {
		pushMu.Lock()
		defer pushMu.Unlock()
		select {
		case <-scenes:
		default:
		}
		scenes <- s
	}
	cancel := st.Subscribe(func(prev, next *store.State) {
		if prev.Scene != next.Scene {
			push(next.Scene)
		}
	})
	defer cancel()
	push(st.Snapshot().Scene)

	for {
		select {
		case <-ctx.Done():
			if err := m.CloseAll(); err != nil {
				log.Printf("[!] %v", err)
			}
			return ctx.Err()
		case s := <-scenes:
			if err := m.Reconcile(s); err != nil {
				log.Printf("[!] Ошибка окон: %v", err)
			}
		}
	}
}

func sortedLabels(m map[string]Window) []string {
	labels := make([]string, 0, len(m))
	for l := range m {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
