// Package transport exposes the engine over HTTP and websockets.
//
// Producers push snapshots over /ws/scene (one JSON document per message) or
// POST them to /api/scene. Observers read the live pool from /api/pool, fetch
// a binary glTF of the scene from /api/export.glb and subscribe to frame rate
// reports on /ws/fps.
package transport

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/tilescape/engine/feed"
	"github.com/Carmen-Shannon/tilescape/engine/reconciler"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
	"github.com/Carmen-Shannon/tilescape/engine/world"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Backend is the engine surface the server drives.
type Backend interface {
	// Submit queues a snapshot for reconciliation.
	Submit(desc scene.Descriptor)

	// SubmitState queues a puzzle state for expansion and reconciliation.
	SubmitState(s world.State)

	// Entries returns a copy of the live pool.
	Entries() []reconciler.Entry

	// Export writes the live scene as binary glTF.
	Export(w io.Writer) error
}

// Ack answers one submitted snapshot.
type Ack struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind,omitempty"`
	Primitives int      `json:"primitives"`
	Dropped    []string `json:"dropped,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// FPSReport is the message broadcast on /ws/fps.
type FPSReport struct {
	FPS  float64   `json:"fps"`
	Time time.Time `json:"time"`
}

type server struct {
	mu        *sync.Mutex
	backend   Backend
	hub       *Hub
	addr      string
	accessLog io.Writer
	readLimit int64
	upgrader  websocket.Upgrader
	router    *mux.Router
	received  uint64
}

// Server serves the engine's HTTP and websocket endpoints.
type Server interface {
	// Handler returns the routed handler wrapped in recovery and access logging.
	Handler() http.Handler

	// Hub returns the FPS broadcast hub.
	Hub() *Hub

	// PublishFPS broadcasts a frame rate report to every /ws/fps client.
	//
	// Parameters:
	//   - fps: the averaged frames per second
	PublishFPS(fps float64)

	// Received returns how many snapshots were accepted.
	Received() uint64

	// ListenAndServe serves on the configured address until ctx is done.
	//
	// Parameters:
	//   - ctx: stops the server
	//
	// Returns:
	//   - error: nil after a clean shutdown
	ListenAndServe(ctx context.Context) error
}

var _ Server = &server{}

// NewServer creates a Server for backend.
//
// Parameters:
//   - backend: the engine to drive
//   - options: functional options to configure the server
//
// Returns:
//   - Server: the new server
func NewServer(backend Backend, options ...ServerBuilderOption) Server {
	if backend == nil {
		panic("transport: backend must not be nil")
	}
	s := &server{
		mu:        &sync.Mutex{},
		backend:   backend,
		hub:       NewHub(),
		addr:      DefaultAddr,
		accessLog: os.Stdout,
		readLimit: DefaultReadLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range options {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/ws/scene", s.handleSceneSocket)
	r.HandleFunc("/ws/fps", s.handleFPSSocket)
	r.HandleFunc("/api/scene", s.handleScenePost).Methods(http.MethodPost)
	r.HandleFunc("/api/pool", s.handlePool).Methods(http.MethodGet)
	r.HandleFunc("/api/export.glb", s.handleExport).Methods(http.MethodGet)
	s.router = r
	return s
}

func (s *server) Handler() http.Handler {
	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(s.router)
	return handlers.LoggingHandler(s.accessLog, h)
}

func (s *server) Hub() *Hub {
	return s.hub
}

func (s *server) PublishFPS(fps float64) {
	if err := s.hub.Broadcast(FPSReport{FPS: fps, Time: time.Now()}); err != nil {
		log.Printf("[Server] %v", err)
	}
}

func (s *server) Received() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

func (s *server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrapf(err, "listen on %s", s.addr)
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

// submit decodes one document and hands it to the backend.
func (s *server) submit(data []byte, format feed.Format) Ack {
	ack := Ack{ID: uuid.NewString()}
	desc, state, diags, kind, err := feed.Decode(data, format)
	if err != nil {
		ack.Error = err.Error()
		return ack
	}
	ack.Kind = kind.String()
	for _, d := range diags {
		ack.Dropped = append(ack.Dropped, d.Error())
	}
	switch kind {
	case feed.KindState:
		ack.Primitives = len(state.Blocks)
		s.backend.SubmitState(state)
	default:
		ack.Primitives = len(desc.Primitives)
		s.backend.Submit(desc)
	}
	s.mu.Lock()
	s.received++
	s.mu.Unlock()
	return ack
}

func (s *server) handleSceneSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server] Scene upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.readLimit)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[Server] Scene socket closed: %v", err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		ack := s.submit(data, feed.FormatJSON)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ack); err != nil {
			log.Printf("[Server] Scene ack failed: %v", err)
			return
		}
	}
}

func (s *server) handleFPSSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server] FPS upgrade failed: %v", err)
		return
	}
	s.hub.attach(conn)
}

func (s *server) handleScenePost(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, s.readLimit))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "read body"))
		return
	}
	format := feed.FormatJSON
	if strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "yaml") {
		format = feed.FormatYAML
	}
	ack := s.submit(data, format)
	status := http.StatusAccepted
	if ack.Error != "" {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, ack)
}

func (s *server) handlePool(w http.ResponseWriter, r *http.Request) {
	entries := s.backend.Entries()
	if entries == nil {
		entries = []reconciler.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "model/gltf-binary")
	w.Header().Set("Content-Disposition", `attachment; filename="scene.glb"`)
	if err := s.backend.Export(w); err != nil {
		log.Printf("[Server] Export failed: %v", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.Wrap(err, "encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	http.Error(w, err.Error(), status)
}
