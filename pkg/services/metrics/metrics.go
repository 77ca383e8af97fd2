// Package metrics provides the HTTP services exposing Prometheus metrics
// and pprof profiling data for the heap shell.
package metrics

import (
	"context"
	"net/http"

	"github.com/vesper-lang/vesper-go/pkg/config"
	"go.uber.org/zap"
)

// Service serves metrics over HTTP.
type Service struct {
	servers     []*http.Server
	config      config.BasicService
	log         *zap.Logger
	serviceType string
}

// NewService configures the given servers for the service.
func NewService(name string, srvs []*http.Server, cfg config.BasicService, log *zap.Logger) *Service {
	return &Service{
		servers:     srvs,
		config:      cfg,
		log:         log.With(zap.String("service", name)),
		serviceType: name,
	}
}

// Start runs the HTTP service on the configured endpoints.
func (ms *Service) Start() {
	if !ms.config.Enabled {
		ms.log.Info("service hasn't started since it's disabled")
		return
	}
	for _, srv := range ms.servers {
		go func(s *http.Server) {
			ms.log.Info("service is running", zap.String("endpoint", s.Addr))
			err := s.ListenAndServe()
			if err != nil && err != http.ErrServerClosed {
				ms.log.Warn("service couldn't start on configured port",
					zap.String("endpoint", s.Addr), zap.Error(err))
			}
		}(srv)
	}
}

// ShutDown stops the service.
func (ms *Service) ShutDown() {
	if !ms.config.Enabled {
		return
	}
	for _, srv := range ms.servers {
		ms.log.Info("shutting down service", zap.String("endpoint", srv.Addr))
		if err := srv.Shutdown(context.Background()); err != nil {
			ms.log.Error("can't shut service down", zap.Error(err))
		}
	}
}
