// Package observe serves the sorting scene to local observers over HTTP and
// WebSocket, and accepts run/pause/reset commands from them.
package observe

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gwillem/armsort/pkg/sim"
	"github.com/gwillem/armsort/pkg/world"
)

// Controller is the part of the simulation observers may drive.
type Controller interface {
	Snapshot() sim.Snapshot
	Run()
	Pause()
	Reset() world.SortedCounts
}

// Server fans snapshots out to connected observers.
type Server struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	ctl atomic.Pointer[Controller]

	mu      sync.Mutex
	clients map[uint64]chan []byte
}

// NewServer returns a server with no controller bound.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
		clients: make(map[uint64]chan []byte),
	}
}

// Bind attaches the controller. Handlers answer 503 until it is set.
func (s *Server) Bind(ctl Controller) {
	s.ctl.Store(&ctl)
}

func (s *Server) controller() Controller {
	if p := s.ctl.Load(); p != nil {
		return *p
	}
	return nil
}

// Handler returns a mux with /snapshot and /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", s.SnapshotHandler())
	mux.HandleFunc("/ws", s.WSHandler())
	return mux
}

// Clients returns the number of connected observers.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Publish sends a snapshot to every connected observer. Slow observers skip
// frames.
func (s *Server) Publish(snap sim.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) == 0 {
		return
	}

	b, err := json.Marshal(NewSceneMsg(snap))
	if err != nil {
		s.logger.Error("encode scene", "err", err)
		return
	}
	for _, out := range s.clients {
		offer(out, b)
	}
}

// SnapshotHandler serves the current scene as JSON to loopback GET requests.
func (s *Server) SnapshotHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctl := s.controller()
		if ctl == nil {
			http.Error(rw, "simulation not ready", http.StatusServiceUnavailable)
			return
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(NewSceneMsg(ctl.Snapshot()))
	}
}

// WSHandler upgrades loopback clients to a WebSocket. The client receives the
// scene on connect and after every tick, and may send CONTROL messages.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctl := s.controller()
		if ctl == nil {
			http.Error(rw, "simulation not ready", http.StatusServiceUnavailable)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id := s.nextID.Add(1)
		out := make(chan []byte, 8)
		s.mu.Lock()
		s.clients[id] = out
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.clients, id)
			s.mu.Unlock()
		}()
		s.logger.Info("observer connected", "id", id, "remote", r.RemoteAddr)

		if b, err := json.Marshal(NewSceneMsg(ctl.Snapshot())); err == nil {
			offer(out, b)
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var cmd ControlMsg
			if err := json.Unmarshal(msg, &cmd); err != nil || cmd.Type != TypeControl {
				offer(out, errorMsg("expected CONTROL message"))
				continue
			}
			switch cmd.Action {
			case ActionRun:
				ctl.Run()
			case ActionPause:
				ctl.Pause()
			case ActionReset:
				ctl.Reset()
			default:
				offer(out, errorMsg("unknown action "+cmd.Action))
				continue
			}
			s.logger.Info("observer command", "id", id, "action", cmd.Action)
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		s.logger.Info("observer disconnected", "id", id)
	}
}

// offer queues b, dropping the oldest frame when the queue is full.
func offer(out chan []byte, b []byte) {
	select {
	case out <- b:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- b:
	default:
	}
}

func errorMsg(text string) []byte {
	b, _ := json.Marshal(ErrorMsg{Type: TypeError, Message: text})
	return b
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
