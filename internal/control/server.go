// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

// Package control provides an HTTP control socket for inspecting and
// driving a running router.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Choochmeque/crosscall/internal/bridge"
	"github.com/Choochmeque/crosscall/internal/xdg"
)

// invokeTimeout bounds how long /invoke waits for a terminal response.
const invokeTimeout = 30 * time.Second

// HealthResponse is returned by the /health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// StatusResponse is returned by the /status endpoint.
type StatusResponse struct {
	Running       bool  `json:"running"`
	PID           int   `json:"pid"`
	UptimeSeconds int64 `json:"uptime_seconds"`
	PluginCount   int   `json:"plugin_count"`
}

// PluginInfo describes one registered plugin in the /plugins listing.
type PluginInfo struct {
	Name     string   `json:"name"`
	Commands []string `json:"commands"`
}

// InvokeRequest is the POST body accepted by /invoke.
type InvokeRequest struct {
	ID      int32  `json:"id"`
	Plugin  string `json:"plugin"`
	Command string `json:"command"`
	Data    string `json:"data"`
}

// InvokeResponse is the reply from /invoke. Channel data emitted during
// the invocation is accumulated per channel id.
type InvokeResponse struct {
	ID      int32               `json:"id"`
	Success bool                `json:"success"`
	Payload *string             `json:"payload"`
	Channel map[uint64][]string `json:"channel,omitempty"`
}

// ShutdownResponse is returned by the /shutdown endpoint.
type ShutdownResponse struct {
	Message string `json:"message"`
}

// ShutdownFunc is called when shutdown is requested over the socket.
type ShutdownFunc func()

// Server runs HTTP over a Unix socket for router management.
type Server struct {
	runtime      *bridge.Runtime
	startTime    time.Time
	listener     net.Listener
	httpServer   *http.Server
	socketPath   string
	shutdownFunc ShutdownFunc
	running      atomic.Bool
}

// NewServer creates a control socket server for the given runtime.
// socketPath may be empty, in which case the default under the XDG
// runtime directory is used.
func NewServer(runtime *bridge.Runtime, socketPath string, shutdownFunc ShutdownFunc) *Server {
	if socketPath == "" {
		socketPath = xdg.SocketPath()
	}
	s := &Server{
		runtime:      runtime,
		startTime:    time.Now(),
		socketPath:   socketPath,
		shutdownFunc: shutdownFunc,
	}
	s.running.Store(true)
	return s
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening on the Unix socket.
func (s *Server) Start() error {
	if err := xdg.EnsureDir(filepath.Dir(s.socketPath)); err != nil {
		return fmt.Errorf("failed to create runtime directory: %w", err)
	}

	// Remove a stale socket from a previous run.
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /plugins", s.handlePlugins)
	mux.HandleFunc("POST /invoke", s.handleInvoke)
	mux.HandleFunc("POST /shutdown", s.handleShutdown)

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("control socket server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the control socket server.
func (s *Server) Stop(ctx context.Context) error {
	s.running.Store(false)

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown http server: %w", err)
		}
	}

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Warn("failed to close control socket listener", "error", err)
		}
	}

	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove control socket file",
			"path", s.socketPath,
			"error", err)
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		slog.Error("failed to write health response", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Running:       s.running.Load(),
		PID:           os.Getpid(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		PluginCount:   len(s.runtime.Registry().Names()),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		slog.Error("failed to write status response", "error", err)
	}
}

func (s *Server) handlePlugins(w http.ResponseWriter, _ *http.Request) {
	registry := s.runtime.Registry()
	infos := make([]PluginInfo, 0)
	for _, name := range registry.Names() {
		handle, ok := registry.Lookup(name)
		if !ok {
			continue
		}
		infos = append(infos, PluginInfo{
			Name:     name,
			Commands: handle.Directory(),
		})
	}
	if err := writeJSON(w, http.StatusOK, infos); err != nil {
		slog.Error("failed to write plugins response", "error", err)
	}
}

// handleInvoke runs one command and blocks until its terminal response,
// accumulating any channel data into the reply.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Plugin == "" || req.Command == "" {
		http.Error(w, "plugin and command are required", http.StatusBadRequest)
		return
	}

	var mu sync.Mutex
	chunks := map[uint64][]string{}
	done := make(chan InvokeResponse, 1)

	s.runtime.RunCommand(req.ID, req.Plugin, req.Command, req.Data,
		func(id int32, success bool, payload string) {
			done <- InvokeResponse{ID: id, Success: success, Payload: &payload}
		},
		func(channelID uint64, payload string) {
			mu.Lock()
			chunks[channelID] = append(chunks[channelID], payload)
			mu.Unlock()
		})

	select {
	case resp := <-done:
		mu.Lock()
		if len(chunks) > 0 {
			resp.Channel = chunks
		}
		mu.Unlock()
		if err := writeJSON(w, http.StatusOK, resp); err != nil {
			slog.Error("failed to write invoke response", "error", err)
		}
	case <-time.After(invokeTimeout):
		http.Error(w, "invocation timed out", http.StatusGatewayTimeout)
	case <-r.Context().Done():
	}
}

func (s *Server) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	resp := ShutdownResponse{Message: "shutdown initiated"}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		slog.Error("failed to write shutdown response", "error", err)
	}

	if s.shutdownFunc != nil {
		go s.shutdownFunc()
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}
	return nil
}
