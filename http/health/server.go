// Package health exposes liveness and prometheus metrics over HTTP for
// processes embedding the engine.
package health

import (
	httpgo "net/http"

	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	*http.Server
}

// NewServer serves /health and /metrics on addr. A nil gatherer falls back
// to the default prometheus registry.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	s := http.NewServer(http.Address(addr))

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(httpgo.StatusOK)
	})

	return &Server{s}
}
