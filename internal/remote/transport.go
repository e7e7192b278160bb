// Package remote is the control channel between the editor and a display
// process: an HTTP JSON API, its client, and LAN discovery.
package remote

import (
	"sync"
	"time"

	"github.com/ivlev/constellation/internal/project"
)

type Status string

const (
	StatusStopped Status = "stopped"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
)

// TransportState is the playback state reported by a display process.
type TransportState struct {
	Status      Status  `json:"status"`
	TimeSeconds float64 `json:"time_seconds"`
	Rate        float64 `json:"rate"`
}

// Transport is the display-side clock. Time is base + rate*elapsed while
// playing; every transition folds the elapsed time into base first.
type Transport struct {
	mu        sync.Mutex
	status    Status
	rate      float64
	base      float64
	startedAt time.Time
	project   *project.Project

	now     func() time.Time
	watchMu sync.Mutex
	watch   map[chan TransportState]struct{}
}

func NewTransport() *Transport {
	return &Transport{
		status: StatusStopped,
		rate:   1,
		now:    time.Now,
		watch:  map[chan TransportState]struct{}{},
	}
}

func (t *Transport) elapsedLocked() float64 {
	if t.status != StatusPlaying || t.startedAt.IsZero() {
		return 0
	}
	return t.rate * t.now().Sub(t.startedAt).Seconds()
}

func (t *Transport) stateLocked() TransportState {
	return TransportState{Status: t.status, TimeSeconds: t.base + t.elapsedLocked(), Rate: t.rate}
}

// Play starts the clock, optionally from at.
func (t *Transport) Play(at *float64) {
	t.mu.Lock()
	if t.status == StatusPlaying {
		t.base += t.elapsedLocked()
	}
	if at != nil {
		t.base = *at
	}
	t.startedAt = t.now()
	t.status = StatusPlaying
	t.mu.Unlock()
	t.notify()
}

func (t *Transport) Pause() {
	t.mu.Lock()
	t.base += t.elapsedLocked()
	t.startedAt = time.Time{}
	t.status = StatusPaused
	t.mu.Unlock()
	t.notify()
}

// Stop rewinds to 0.
func (t *Transport) Stop() {
	t.mu.Lock()
	t.startedAt = time.Time{}
	t.base = 0
	t.status = StatusStopped
	t.mu.Unlock()
	t.notify()
}

func (t *Transport) Seek(to float64) {
	t.mu.Lock()
	t.base = to
	if t.status == StatusPlaying {
		t.startedAt = t.now()
	}
	t.mu.Unlock()
	t.notify()
}

// SetRate changes speed without jumping: time played at the old rate is
// kept.
func (t *Transport) SetRate(rate float64) {
	t.mu.Lock()
	if t.status == StatusPlaying {
		t.base += t.elapsedLocked()
		t.startedAt = t.now()
	}
	t.rate = rate
	t.mu.Unlock()
	t.notify()
}

func (t *Transport) State() TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Transport) SetProject(p *project.Project) {
	t.mu.Lock()
	t.project = p
	t.mu.Unlock()
}

func (t *Transport) Project() *project.Project {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.project
}

// ActiveClip returns the clip shown on a screen node right now.
func (t *Transport) ActiveClip(nodeID string) (project.MediaClip, bool) {
	t.mu.Lock()
	p, now := t.project, t.stateLocked().TimeSeconds
	t.mu.Unlock()
	_, clip, ok := project.ActiveForTarget(p, nodeID, now)
	return clip, ok
}

// Watch returns a channel receiving the state after every transition. The
// channel keeps only the latest state. The returned function unregisters
// and closes it; calling it again is a no-op.
func (t *Transport) Watch() (<-chan TransportState, func()) {
	ch := make(chan TransportState, 1)
	t.watchMu.Lock()
	t.watch[ch] = struct{}{}
	t.watchMu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.watchMu.Lock()
			delete(t.watch, ch)
			close(ch)
			t.watchMu.Unlock()
		})
	}
}

func (t *Transport) notify() {
	st := t.State()
	t.watchMu.Lock()
	defer t.watchMu.Unlock()
	for ch := range t.watch {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}
