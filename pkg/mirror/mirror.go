// Package mirror serves a read-only HTTP view of the session data
// directory so snapshots and continuity documents can be inspected from a
// browser or scraped by monitoring.
package mirror

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Server exposes the data directory, a health endpoint, and Prometheus
// metrics over plain HTTP.
type Server struct {
	httpServer *http.Server
	dataDir    string
	started    time.Time
}

// NewServer creates a mirror server for the given data directory.
func NewServer(addr, dataDir string) *Server {
	s := &Server{dataDir: dataDir}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/files/", http.StripPrefix("/files/", readOnly(http.FileServer(http.Dir(dataDir)))))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully. It
// returns nil on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.started = time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Handler returns the server's HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "healthy",
		"data_dir": s.dataDir,
		"uptime":   time.Since(s.started).String(),
	})
}

// readOnly rejects anything but GET and HEAD before delegating.
func readOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
