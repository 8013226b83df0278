package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/chainarcade/replay-go/internal/games"
)

// HealthCheckResponse is the /health payload.
type HealthCheckResponse struct {
	Status    string     `json:"status"`
	Timestamp string     `json:"timestamp"`
	Uptime    string     `json:"uptime"`
	Games     int        `json:"games"`
	System    SystemInfo `json:"system"`
}

// SystemInfo contains process-level runtime information.
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := "healthy"
	code := http.StatusOK
	if _, err := s.ledger.Fee(r.Context()); err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, HealthCheckResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).String(),
		Games:     len(games.List()),
		System: SystemInfo{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			NumCPU:        runtime.NumCPU(),
			MemoryAlloc:   mem.Alloc,
		},
	})
}

// handleReadiness reports whether the server can take traffic.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ledger.Fee(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLiveness only proves the process is serving requests.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
