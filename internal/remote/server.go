package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ivlev/constellation/internal/project"
)

const maxProjectBytes = 32 << 20

// Ack is the reply to every control call.
type Ack struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type playRequest struct {
	AtSeconds *float64 `json:"at_seconds,omitempty"`
}

type seekRequest struct {
	ToSeconds float64 `json:"to_seconds"`
}

type rateRequest struct {
	Rate float64 `json:"rate"`
}

// Server exposes a Transport over HTTP.
type Server struct {
	T *Transport

	upgrader websocket.Upgrader
}

func NewServer(t *Transport) *Server {
	return &Server{
		T: t,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/project", s.loadProject)
	mux.HandleFunc("POST /v1/play", s.play)
	mux.HandleFunc("POST /v1/pause", func(w http.ResponseWriter, r *http.Request) {
		s.T.Pause()
		writeAck(w, http.StatusOK, Ack{OK: true, Message: "pause"})
	})
	mux.HandleFunc("POST /v1/stop", func(w http.ResponseWriter, r *http.Request) {
		s.T.Stop()
		writeAck(w, http.StatusOK, Ack{OK: true, Message: "stop"})
	})
	mux.HandleFunc("POST /v1/seek", s.seek)
	mux.HandleFunc("POST /v1/rate", s.rate)
	mux.HandleFunc("GET /v1/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.T.State())
	})
	mux.HandleFunc("GET /v1/active", s.active)
	mux.HandleFunc("GET /v1/subscribe", s.subscribe)
	return mux
}

func (s *Server) loadProject(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxProjectBytes))
	if err != nil {
		writeAck(w, http.StatusBadRequest, Ack{Message: err.Error()})
		return
	}
	p, err := project.Parse(raw)
	if err != nil {
		writeAck(w, http.StatusBadRequest, Ack{Message: fmt.Sprintf("parse error: %v", err)})
		return
	}
	s.T.SetProject(p)
	log.Printf("[*] Проект загружен: %s (%d клипов, %d размещений)", p.Name, len(p.Media), len(p.Timeline.Placements))
	writeAck(w, http.StatusOK, Ack{OK: true, Message: "project loaded"})
}

func (s *Server) play(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if !decode(w, r, &req) {
		return
	}
	s.T.Play(req.AtSeconds)
	writeAck(w, http.StatusOK, Ack{OK: true, Message: "play"})
}

func (s *Server) seek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if !decode(w, r, &req) {
		return
	}
	s.T.Seek(req.ToSeconds)
	writeAck(w, http.StatusOK, Ack{OK: true, Message: "seek"})
}

func (s *Server) rate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if !decode(w, r, &req) {
		return
	}
	s.T.SetRate(req.Rate)
	writeAck(w, http.StatusOK, Ack{OK: true, Message: "rate set"})
}

// Active is the clip a display node should show right now.
type Active struct {
	ClipID string `json:"clip_id"`
	URI    string `json:"uri"`
}

func (s *Server) active(w http.ResponseWriter, r *http.Request) {
	node := r.URL.Query().Get("node")
	clip, ok := s.T.ActiveClip(node)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, Active{ClipID: clip.ID, URI: clip.URI})
}

// subscribe streams the transport state over a websocket: the current state
// first, then one message per transition.
func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	updates, cancel := s.T.Watch()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(st TransportState) bool {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(st) == nil
	}
	if !send(s.T.State()) {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case st, ok := <-updates:
			if !ok || !send(st) {
				return
			}
		}
	}
}

// decode reads an optional JSON body. An empty body leaves v zero.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if err == nil || err == io.EOF {
		return true
	}
	writeAck(w, http.StatusBadRequest, Ack{Message: fmt.Sprintf("bad request: %v", err)})
	return false
}

func writeAck(w http.ResponseWriter, code int, ack Ack) {
	writeJSON(w, code, ack)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
