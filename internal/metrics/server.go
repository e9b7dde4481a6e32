// Package metrics serves Prometheus metrics and a health endpoint.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/systmms/secretmgr/internal/logging"
	"github.com/systmms/secretmgr/pkg/secrets"
)

// DefaultListen is used when metrics.listen is not configured
const DefaultListen = "127.0.0.1:9090"

// StatusReporter is the part of *secrets.Store the health handler reads.
type StatusReporter interface {
	Snapshot() []secrets.Status
}

// Server exposes /metrics and /health.
type Server struct {
	listen   string
	gatherer prometheus.Gatherer
	status   StatusReporter
	logger   *logging.Logger

	server   *http.Server
	listener net.Listener
}

// NewServer creates a server. status may be nil, in which case /health
// always reports ok.
func NewServer(listen string, gatherer prometheus.Gatherer, status StatusReporter, logger *logging.Logger) *Server {
	if listen == "" {
		listen = DefaultListen
	}
	return &Server{listen: listen, gatherer: gatherer, status: status, logger: logger}
}

type secretHealth struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Available bool   `json:"available"`
}

type healthResponse struct {
	Status  string         `json:"status"`
	Secrets []secretHealth `json:"secrets"`
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", s.health)
	return mux
}

// health answers 503 while any secret failed to load.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Secrets: []secretHealth{}}
	if s.status != nil {
		for _, st := range s.status.Snapshot() {
			resp.Secrets = append(resp.Secrets, secretHealth{
				Name:      st.ID.String(),
				State:     st.State.String(),
				Available: st.Available,
			})
			if st.State == secrets.LoadFailed {
				resp.Status = "degraded"
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return err
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error: %v", err)
		}
	}()
	s.logger.Info("Serving metrics on http://%s/metrics", ln.Addr())
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Addr returns the bound address, useful with port 0
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
