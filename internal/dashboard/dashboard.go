// SPDX-License-Identifier: MPL-2.0

// Package dashboard serves the inspector's HTTP+websocket surface on
// loopback, on an independent worker so the RPC front-end is never blocked.
// Its lifecycle is modeled on the teacher's serverbase state machine.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"codeexec-server/internal/core/serverbase"
	"codeexec-server/internal/inspector"
)

// Server is the Dashboard Endpoint component (spec §4.G). A Server instance
// is single-use: once stopped or failed, create a new instance.
type Server struct {
	*serverbase.Base

	host string
	port int

	inspector *inspector.Inspector
	hub       *inspector.Hub
	upgrader  websocket.Upgrader

	logger *log.Logger

	srv      *http.Server
	listener net.Listener
}

// Config holds the Dashboard's immutable startup configuration.
type Config struct {
	Host string
	Port int
}

// DefaultPort matches spec §6's default INSPECTOR_PORT.
const DefaultPort = 8000

// New constructs a Dashboard server. It is not started; call Start.
func New(cfg Config, ins *inspector.Inspector, hub *inspector.Hub, logger *log.Logger) *Server {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "dashboard"})
	}

	return &Server{
		Base:      serverbase.NewBase(),
		host:      cfg.Host,
		port:      cfg.Port,
		inspector: ins,
		hub:       hub,
		logger:    logger,
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// Start binds the loopback listener and begins serving. It blocks until the
// server is ready or fails to start.
func (s *Server) Start(ctx context.Context) error {
	if err := s.TransitionToStarting(ctx); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		s.TransitionToFailed(fmt.Errorf("failed to listen on %s: %w", addr, err))
		return s.LastError()
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/messages", s.handleMessages)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/clear", s.handleClear)
	mux.HandleFunc("/api/toggle_recording", s.handleToggleRecording)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	s.AddGoroutine()
	go s.serve()

	select {
	case <-s.StartedChannel():
		s.logger.Info("dashboard started", "address", listener.Addr().String())
		return nil
	case err := <-s.Err():
		s.TransitionToFailed(err)
		return err
	}
}

func (s *Server) serve() {
	defer s.DoneGoroutine()
	s.TransitionToRunning()

	if err := s.srv.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		s.SendError(fmt.Errorf("dashboard serve error: %w", err))
	}
}

// Stop gracefully shuts the dashboard down, bounding the shutdown by ctx.
// Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	if !s.TransitionToStopping() {
		s.WaitForShutdown()
		return nil
	}

	err := s.srv.Shutdown(ctx)
	s.WaitForShutdown()
	s.TransitionToStopped()
	s.CloseErrChannel()
	return err
}

// Addr returns the bound address once the server has started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(dashboardHTML))
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	messages := s.inspector.RecentMessages(100)
	metrics := s.inspector.GetMetrics()
	writeJSON(w, map[string]any{"messages": messages, "metrics": metrics})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"mcp_metrics":    s.inspector.GetMetrics(),
		"system_metrics": inspector.GetSystemMetrics(r.Context()),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.inspector.Clear()
	writeJSON(w, map[string]any{"status": "cleared"})
}

func (s *Server) handleToggleRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	recording := s.inspector.ToggleRecording()
	writeJSON(w, map[string]any{"recording": recording})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	s.hub.Add(conn)

	defer s.hub.Remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
