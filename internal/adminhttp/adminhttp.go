// Package adminhttp is the operator-facing HTTP surface: liveness,
// Prometheus scraping, and a read-only session listing — grounded on
// Tutu-Engine's internal/api/server.go (chi router, middleware stack,
// promhttp.Handler mounted at /metrics).
package adminhttp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cambricon/easydk-go/internal/infersrv"
)

// Server is the admin HTTP surface. It has no state of its own beyond
// routing; every handler reads directly from the package-level session
// registry and the default Prometheus registry.
type Server struct{}

// NewServer creates an admin server.
func NewServer() *Server { return &Server{} }

// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/sessions", s.handleSessions)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionView struct {
	ID        string  `json:"id"`
	ModelKey  string  `json:"model_key"`
	Requests  uint64  `json:"requests"`
	Units     uint64  `json:"units"`
	RPS       float64 `json:"rps"`
	UPS       float64 `json:"ups"`
	LatencyMs float64 `json:"latency_mean_ms"`
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	infos := infersrv.ListSessions()
	views := make([]sessionView, 0, len(infos))
	for _, info := range infos {
		views = append(views, sessionView{
			ID:        info.ID,
			ModelKey:  info.ModelKey,
			Requests:  info.Aggregate.Requests,
			Units:     info.Aggregate.Units,
			RPS:       info.Aggregate.RPS,
			UPS:       info.Aggregate.UPS,
			LatencyMs: float64(info.Aggregate.LatencyMean) / float64(time.Millisecond),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
