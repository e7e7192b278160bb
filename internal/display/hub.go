package display

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ivlev/constellation/internal/media"
	"github.com/ivlev/constellation/internal/project"
	"github.com/ivlev/constellation/internal/store"
)

const (
	MsgSnapshot = "snapshot"
	MsgTime     = "time"

	sendBuffer = 16
	writeWait  = 5 * time.Second
)

// Message is what display windows receive. A snapshot carries the whole
// project so windows can render without any earlier state; a time message
// only moves the playhead. Both are safe to apply twice.
type Message struct {
	Type    string          `json:"type"`
	Time    float64         `json:"time"`
	Project json.RawMessage `json:"project,omitempty"`
	Scene   json.RawMessage `json:"scene,omitempty"`
}

type client struct {
	conn     *websocket.Conn
	screenID string
	send     chan []byte
}

// Hub fans snapshot and time messages out to connected display windows.
// Sends never block: a client whose queue is full misses the message.
type Hub struct {
	upgrader websocket.Upgrader
	Probe    func(uri string) (media.Size, bool)

	mu       sync.Mutex
	clients  map[*client]struct{}
	project  *project.Project
	time     float64
	snapshot []byte
	dropped  int
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		Probe:   media.ProbeImage,
		clients: map[*client]struct{}{},
	}
}

// Handler serves /ws for windows and /frame for a JSON rendering of what a
// window should show right now.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	mux.HandleFunc("/frame", h.serveFrame)
	return mux
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[!] websocket: %v", err)
		return
	}
	c := &client{conn: conn, screenID: r.URL.Query().Get("screenId"), send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.snapshot != nil {
		c.send <- h.snapshot
	}
	h.mu.Unlock()
	log.Printf("[*] Дисплей подключён: %s (%s)", c.screenID, conn.RemoteAddr())

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop only watches for the window going away.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		log.Printf("[*] Дисплей отключён: %s", c.screenID)
	}
}

func (h *Hub) broadcastLocked(data []byte) {
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped++
		}
	}
}

// Snapshot records p at time t and sends it to every window.
func (h *Hub) Snapshot(p *project.Project, t float64) error {
	msg := Message{Type: MsgSnapshot, Time: t}
	if p != nil {
		body, err := project.Body(p)
		if err != nil {
			return err
		}
		if msg.Project, err = json.Marshal(body); err != nil {
			return err
		}
		if msg.Scene, err = project.EncodeScene(p.Scene); err != nil {
			return err
		}
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.project, h.time, h.snapshot = p, t, data
	h.broadcastLocked(data)
	return nil
}

// Time sends a playhead update.
func (h *Hub) Time(t float64) {
	data, _ := json.Marshal(Message{Type: MsgTime, Time: t})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.time = t
	h.broadcastLocked(data)
}

// Follow mirrors the store into the hub: project or scene changes send a
// snapshot, playhead-only changes send a time message.
func (h *Hub) Follow(st *store.Store) func() {
	if s := st.Snapshot(); s.Project != nil {
		h.Snapshot(s.Project, s.Time)
	}
	return st.Subscribe(func(prev, next *store.State) {
		switch {
		case prev.Project != next.Project || prev.Scene != next.Scene:
			if err := h.Snapshot(next.Project, next.Time); err != nil {
				log.Printf("[!] Снимок для дисплеев не отправлен: %v", err)
			}
		case prev.Time != next.Time:
			h.Time(next.Time)
		}
	})
}

// Clients returns the number of connected windows.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many messages were skipped for slow windows.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hub) serveFrame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	win := media.Size{W: atoiOr(q.Get("w"), 1920), H: atoiOr(q.Get("h"), 1080)}

	h.mu.Lock()
	p, t := h.project, h.time
	h.mu.Unlock()
	if tq := q.Get("t"); tq != "" {
		if v, err := strconv.ParseFloat(tq, 64); err == nil {
			t = v
		}
	}

	resp := struct {
		ScreenID string  `json:"screen_id"`
		Time     float64 `json:"time"`
		Items    []Item  `json:"items"`
	}{ScreenID: q.Get("screenId"), Time: t, Items: Frame(p, t, win, h.Probe)}
	if resp.Items == nil {
		resp.Items = []Item{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
