// Package metrics serves the responder's Prometheus metrics over HTTP.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server is the HTTP server for Prometheus metrics.
type Server struct {
	addr     string
	path     string
	gatherer prometheus.Gatherer
	log      *logrus.Entry

	server *http.Server
	ln     net.Listener
}

// NewServer creates a metrics server exposing g at path on addr.
func NewServer(addr, path string, g prometheus.Gatherer, l *logrus.Logger) *Server {
	if path == "" {
		path = "/metrics"
	}
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Server{
		addr:     addr,
		path:     path,
		gatherer: g,
		log:      l.WithField("component", "metrics"),
	}
}

// Start binds the listen address and serves metrics in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("metrics server listen: %w", err)
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.WithField("addr", ln.Addr().String()).WithField("path", s.path).Info("starting metrics server")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("metrics server error")
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop gracefully stops the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}

	s.log.Info("metrics server stopped")
	return nil
}
