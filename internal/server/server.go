package server

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/murrant/snmpsim/internal/clock"
	"github.com/murrant/snmpsim/internal/variate"
)

// Server is the snmpsim debug HTTP server: it exposes the live subtree
// sessions, one-shot identifier resolution, and a WebSocket stream of
// simulation events.
type Server struct {
	httpServer *http.Server
	selector   *variate.Selector
	clock      clock.Clock
	hub        *Hub
	mux        *http.ServeMux
}

// New creates a new debug server over the given selector.
func New(addr string, sel *variate.Selector, clk clock.Clock, hub *Hub) *Server {
	s := &Server{
		selector: sel,
		clock:    clk,
		hub:      hub,
		mux:      http.NewServeMux(),
	}
	s.routes()
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/subtrees", s.handleSubtrees)
	s.mux.HandleFunc("/api/resolve", s.handleResolve)
	if s.hub != nil {
		s.mux.HandleFunc("/ws", s.hub.HandleWebSocket)
	}
}

// handleRoot serves a welcome message.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "snmpsim",
		"status":  "running",
		"time":    s.clock.Now().Format(time.RFC3339),
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleSubtrees lists the live subtree sessions and their current
// snapshot selection.
func (s *Server) handleSubtrees(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.selector.Sessions())
}

// resolveResponse is the JSON shape of one resolution outcome.
type resolveResponse struct {
	Outcome string `json:"outcome"`
	OID     string `json:"oid,omitempty"`
	Value   string `json:"value,omitempty"`
}

// handleResolve resolves one identifier against a registered subtree.
// Query: subtree, oid, next (optional bool).
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	subtree := r.URL.Query().Get("subtree")
	oid := r.URL.Query().Get("oid")
	if subtree == "" || oid == "" {
		http.Error(w, `{"error":"subtree and oid are required"}`, http.StatusBadRequest)
		return
	}
	next := r.URL.Query().Get("next") == "true"

	res := s.selector.Resolve(subtree, variate.Request{
		OID:         oid,
		OrigOID:     oid,
		ErrorStatus: "noSuchInstance",
		Next:        next,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resolveResponse{
		Outcome: res.Kind.String(),
		OID:     res.OID,
		Value:   res.Value,
	})
}

// Start begins listening. It blocks until the server is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	log.Printf("snmpsim debug server listening on %s", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// StartOnListener begins serving on the provided listener.
// Useful for tests that need to pick an ephemeral port.
func (s *Server) StartOnListener(ln net.Listener) error {
	log.Printf("snmpsim debug server listening on %s", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
