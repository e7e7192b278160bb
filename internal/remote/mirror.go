package remote

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/ivlev/constellation/internal/project"
	"github.com/ivlev/constellation/internal/store"
)

// Mirror forwards editor state changes to a display process: project
// replacements become apply calls and playhead transitions become
// transport commands. Commands run in order on one goroutine; of several
// pending applies only the latest is sent.
type Mirror struct {
	Client *Client
	Store  *store.Store

	mu      sync.Mutex
	pending []mirrorCmd
	wake    chan struct{}
}

type mirrorCmd struct {
	name    string
	project *project.Project
	call    func(ctx context.Context) (string, error)
}

func NewMirror(c *Client, st *store.Store) *Mirror {
	return &Mirror{Client: c, Store: st, wake: make(chan struct{}, 1)}
}

// Run sends the current project, then follows the store until ctx is done.
func (m *Mirror) Run(ctx context.Context) error {
	cancel := m.Store.Subscribe(m.observe)
	defer cancel()
	if cur := m.Store.Snapshot(); cur.Project != nil {
		m.enqueue(m.applyCmd(cur.Project))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.wake:
		}
		for _, cmd := range m.drain() {
			m.exec(ctx, cmd)
		}
	}
}

// observe runs under the store lock and only queues work.
func (m *Mirror) observe(prev, next *store.State) {
	if next.Project != nil && prev.Project != next.Project {
		m.enqueue(m.applyCmd(next.Project))
	}
	switch {
	case !prev.Playing && next.Playing:
		at := next.Time
		m.enqueue(mirrorCmd{name: "play", call: func(ctx context.Context) (string, error) {
			return m.Client.Play(ctx, &at)
		}})
	case !prev.Stopped && next.Stopped:
		m.enqueue(mirrorCmd{name: "stop", call: m.Client.Stop})
	case prev.Playing && !next.Playing:
		m.enqueue(mirrorCmd{name: "pause", call: m.Client.Pause})
	case !next.Playing && prev.Time != next.Time:
		to := next.Time
		m.enqueue(mirrorCmd{name: "seek", call: func(ctx context.Context) (string, error) {
			return m.Client.Seek(ctx, to)
		}})
	}
}

func (m *Mirror) applyCmd(p *project.Project) mirrorCmd {
	return mirrorCmd{name: "apply", project: p, call: func(ctx context.Context) (string, error) {
		raw, err := project.Marshal(p)
		if err != nil {
			return "", err
		}
		return m.Client.ApplyProject(ctx, raw)
	}}
}

func (m *Mirror) enqueue(cmd mirrorCmd) {
	m.mu.Lock()
	if cmd.project != nil {
		kept := m.pending[:0]
		for _, c := range m.pending {
			if c.project == nil {
				kept = append(kept, c)
			}
		}
		m.pending = kept
	}
	m.pending = append(m.pending, cmd)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Mirror) drain() []mirrorCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = nil
	return out
}

func (m *Mirror) exec(ctx context.Context, cmd mirrorCmd) {
	msg, err := cmd.call(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("[!] Дисплей (%s): %v", cmd.name, err)
		m.Store.AddLog(store.LevelWarn, fmt.Sprintf("Display %s failed: %v", cmd.name, err))
		return
	}
	m.Store.AddLog(store.LevelInfo, fmt.Sprintf("Display: %s", msg))
}
