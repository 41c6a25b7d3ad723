package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// Server exposes the spectator feed: a read-only websocket stream of sim
// snapshots. It never feeds anything back into the simulation; the game loop
// hands it snapshots and keeps going whether or not anyone is listening.
type Server struct {
	log *zap.Logger

	srv      *http.Server
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*websocket.Conn]struct{}
}

func NewServer(bind string, log *zap.Logger) *Server {
	s := &Server{
		log:  log.Named("telemetry"),
		subs: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", s.handleWatch)
	s.srv = &http.Server{Addr: bind, Handler: mux}
	return s
}

// Start serves in the background. Listen errors other than a clean shutdown
// are logged, not fatal: the sim runs fine without spectators.
func (s *Server) Start() {
	go func() {
		s.log.Info("spectator feed listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("spectator feed stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for conn := range s.subs {
		conn.Close()
	}
	s.subs = make(map[*websocket.Conn]struct{})
	s.mu.Unlock()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.subs[conn] = struct{}{}
	n := len(s.subs)
	s.mu.Unlock()
	s.log.Info("spectator connected", zap.String("remote", conn.RemoteAddr().String()), zap.Int("spectators", n))

	// Drain (and discard) client frames so pings and close handshakes work.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(conn)
				return
			}
		}
	}()
}

// HasSubscribers lets the snapshot system skip serialization work when
// nobody is watching.
func (s *Server) HasSubscribers() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) > 0
}

// Broadcast sends one snapshot to every spectator. Write failures drop the
// spectator; the next snapshot simply has fewer recipients.
func (s *Server) Broadcast(snap *Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		s.log.Error("snapshot marshal failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.subs))
	for conn := range s.subs {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.drop(conn)
		}
	}
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	_, present := s.subs[conn]
	delete(s.subs, conn)
	s.mu.Unlock()
	if present {
		conn.Close()
		s.log.Info("spectator disconnected", zap.String("remote", conn.RemoteAddr().String()))
	}
}
