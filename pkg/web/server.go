// Package web serves the chamber's REST API, an SSE snapshot stream and a
// websocket feed for the live dashboard.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/skohler/chamber-pi/pkg/control"
	"github.com/skohler/chamber-pi/pkg/history"
	"github.com/skohler/chamber-pi/pkg/override"
)

type Server struct {
	store    *history.Store
	register *override.Register
	maxCode  int
	hub      *Hub
	sse      *sseBroker
	srv      *http.Server

	mu     sync.RWMutex
	latest *control.Snapshot
}

func NewServer(addr string, store *history.Store, register *override.Register, maxCode int) *Server {
	s := &Server{
		store:    store,
		register: register,
		maxCode:  maxCode,
		hub:      NewHub(),
		sse:      newSSEBroker(),
	}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/control", s.handleGetControl).Methods(http.MethodGet)
	r.HandleFunc("/api/control", s.handlePostControl).Methods(http.MethodPost)
	r.HandleFunc("/api/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/stream", s.sse.handler(s.latestFrame)).Methods(http.MethodGet)
	r.HandleFunc("/api/ws", s.hub.handleWS)
	r.HandleFunc("/ws", s.hub.handleWS)
	return r
}

// Run returns the runner group members: the HTTP listener, the websocket hub
// and the snapshot consumer.
func (s *Server) Run(ctx context.Context, input <-chan control.Snapshot) []func() error {
	return []func() error{
		func() error {
			slog.Info("web server listening", "addr", s.srv.Addr, "module", "web")
			err := s.srv.ListenAndServe()
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		},
		func() error {
			return s.hub.Run(ctx)
		},
		func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.srv.Shutdown(shutdownCtx)
		},
		func() error {
			s.consume(input)
			return nil
		},
	}
}

// consume tracks the freshest snapshot and fans it out to the push channels.
func (s *Server) consume(input <-chan control.Snapshot) {
	for snap := range input {
		s.mu.Lock()
		cp := snap
		s.latest = &cp
		s.mu.Unlock()

		frame, err := json.Marshal(snap)
		if err != nil {
			slog.Error("snapshot marshal failed", "error", err, "module", "web")
			continue
		}
		s.hub.Broadcast(frame)
		s.sse.broadcast(frame)
	}
}

func (s *Server) latestFrame() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil
	}
	frame, err := json.Marshal(s.latest)
	if err != nil {
		return nil
	}
	return frame
}

type statusResponse struct {
	Ready    bool              `json:"ready"`
	Snapshot *control.Snapshot `json:"snapshot,omitempty"`
	Override override.State    `json:"override"`
	MaxPWM   int               `json:"max_pwm"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	snap := s.latest
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, statusResponse{
		Ready:    snap != nil,
		Snapshot: snap,
		Override: s.register.Get(),
		MaxPWM:   s.maxCode,
	})
}

func (s *Server) handleGetControl(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.register.Get())
}

func (s *Server) handlePostControl(w http.ResponseWriter, r *http.Request) {
	var req override.State
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid control request: %v", err))
		return
	}
	if req.Code < 0 {
		req.Code = 0
	}
	if req.Code > s.maxCode {
		req.Code = s.maxCode
	}
	s.register.Set(req.Enabled, req.Code)
	if err := s.store.SaveOverride(override.State{Enabled: req.Enabled, Code: req.Code}); err != nil {
		slog.Error("failed to persist override state", "error", err, "module", "web")
	}
	slog.Info("remote control updated", "enabled", req.Enabled, "pwm", req.Code, "module", "web")
	writeJSON(w, http.StatusOK, s.register.Get())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hours := queryFloat(r, "hours", 24)
	limit := queryInt(r, "limit", 1000)
	since := time.Now().Add(-time.Duration(hours * float64(time.Hour)))
	snaps, err := s.store.Range(since, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snaps == nil {
		snaps = []control.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	hours := queryFloat(r, "hours", 24)
	since := time.Now().Add(-time.Duration(hours * float64(time.Hour)))
	stats, err := s.store.Stats(since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err, "module", "web")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
