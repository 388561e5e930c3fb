package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zalo/manapotion/internal/browser"
	"github.com/zalo/manapotion/internal/host"
	"github.com/zalo/manapotion/internal/listener"
	"github.com/zalo/manapotion/internal/session"
	"github.com/zalo/manapotion/internal/webrtc"
)

// Server relays browser pages: each websocket connection becomes a
// session whose input state is tracked server side.
type Server struct {
	mu         sync.RWMutex
	config     *Config
	httpServer *http.Server
	handler    http.Handler
	sessions   *session.Manager
	webrtc     *webrtc.Manager
	clients    map[string]*wsClient
}

// New creates a new server
func New(cfg *Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	webrtcMgr, err := webrtc.NewManager(cfg.ICEServers, cfg.TURNUsername, cfg.TURNCredential)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:   cfg,
		sessions: session.NewManager(cfg.MaxSessions, cfg.SessionConfig()),
		webrtc:   webrtcMgr,
		clients:  make(map[string]*wsClient),
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)
	s.handler = mux

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Sessions returns the session registry.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	// API routes
	mux.HandleFunc("/api/sessions", s.handleListSessions)
	mux.HandleFunc("/api/session/status", s.handleSessionStatus)
	mux.HandleFunc("/api/session/action", s.handleSessionAction)
	mux.HandleFunc("/api/session/leave", s.handleLeaveSession)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/ice-servers", s.handleICEServers)

	// WebSocket for page relays and WebRTC signaling
	mux.HandleFunc("/ws", s.handleWebSocket)

	staticDir := s.config.StaticDir
	if staticDir == "" {
		staticDir = findStaticDir()
	}
	log.Printf("Serving static files from: %s", staticDir)
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
}

// findStaticDir locates the web/static directory
func findStaticDir() string {
	paths := []string{
		"web/static",
		"../web/static",
		"../../web/static",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, "web/static"),
			filepath.Join(exeDir, "../web/static"),
		)
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			abs, _ := filepath.Abs(p)
			return abs
		}
	}

	return "web/static"
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server listening on %s", s.config.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.Shutdown()
		return nil
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.sessions.CloseAll()
	s.webrtc.CloseAll()
}

// API Handlers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	list := s.sessions.ListSessions()
	statuses := make([]session.Status, 0, len(list))
	for _, sess := range list {
		statuses = append(statuses, sess.Snapshot())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(statuses),
		"sessions": statuses,
	})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, err := s.sessions.GetSession(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// actionStatus maps an action failure to an HTTP status.
func actionStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownAction), errors.Is(err, browser.ErrInvalidOrientation):
		return http.StatusBadRequest
	case errors.Is(err, host.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, host.ErrRejected):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

func (s *Server) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		SessionID string `json:"session_id"`
		host.Action
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	sess, err := s.sessions.GetSession(req.SessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	if err := sess.Act(r.Context(), req.Action); err != nil {
		writeError(w, actionStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "done"})
}

func (s *Server) handleLeaveSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := s.sessions.CloseSession(req.SessionID); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.webrtc.RemovePeerConnection(req.SessionID)
	s.disconnect(req.SessionID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.RLock()
		timing := s.config.Listeners
		s.mu.RUnlock()
		writeJSON(w, http.StatusOK, timing)

	case http.MethodPost:
		var timing listener.Timing
		if err := json.NewDecoder(r.Body).Decode(&timing); err != nil {
			http.Error(w, "Invalid settings", http.StatusBadRequest)
			return
		}
		var lc listener.Config
		timing.Apply(&lc)
		if err := lc.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		s.mu.Lock()
		s.config.Listeners = timing
		cfg := s.config.SessionConfig()
		s.mu.Unlock()
		s.sessions.SetConfig(cfg)

		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleICEServers(w http.ResponseWriter, r *http.Request) {
	servers := make([]map[string]any, 0, len(s.config.ICEServers))
	for _, url := range s.config.ICEServers {
		server := map[string]any{"urls": url}
		if s.config.TURNUsername != "" {
			server["username"] = s.config.TURNUsername
			server["credential"] = s.config.TURNCredential
		}
		servers = append(servers, server)
	}

	writeJSON(w, http.StatusOK, servers)
}
