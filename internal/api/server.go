// Package api serves the follower's local status endpoints.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/annagriffin/swarm-cooperative-transport/internal/control"
	"github.com/annagriffin/swarm-cooperative-transport/internal/teledb"
	"github.com/annagriffin/swarm-cooperative-transport/internal/transport"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// StatusSource exposes the control loop's observable state.
type StatusSource interface {
	Status() control.LoopStatus
}

// CycleSource exposes recorded telemetry. *teledb.DB implements it.
type CycleSource interface {
	Session() string
	RecentCycles(limit int) ([]teledb.CycleRow, error)
}

// Server serves the status API for one follower process.
type Server struct {
	robot  string
	loop   StatusSource
	cycles CycleSource
	stats  *transport.Stats
}

// NewServer creates an API server. cycles may be nil when telemetry is
// disabled.
func NewServer(robot string, loop StatusSource, cycles CycleSource, stats *transport.Stats) *Server {
	return &Server{
		robot:  robot,
		loop:   loop,
		cycles: cycles,
		stats:  stats,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// maxCyclesLimit caps one /api/cycles response.
const maxCyclesLimit = 1000

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/cycles", s.listCycles)
	return mux
}

type statusResponse struct {
	Robot   string             `json:"robot"`
	Session string             `json:"session,omitempty"`
	Loop    control.LoopStatus `json:"loop"`
	Packets int64              `json:"packets"`
	Bytes   int64              `json:"bytes"`
	Dropped int64              `json:"dropped"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{
		Robot: s.robot,
		Loop:  s.loop.Status(),
	}
	if s.cycles != nil {
		resp.Session = s.cycles.Session()
	}
	if s.stats != nil {
		resp.Packets, resp.Bytes, resp.Dropped = s.stats.Snapshot()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Failed to encode status", http.StatusInternalServerError)
	}
}

func (s *Server) listCycles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cycles == nil {
		http.Error(w, "Telemetry disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		if n > maxCyclesLimit {
			n = maxCyclesLimit
		}
		limit = n
	}

	rows, err := s.cycles.RecentCycles(limit)
	if err != nil {
		http.Error(w, "Failed to retrieve cycles: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []teledb.CycleRow{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		http.Error(w, "Failed to encode cycles", http.StatusInternalServerError)
	}
}
