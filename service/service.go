package service

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/killrvideo/vector-acceptor/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = "8080"

	MetricsHost = "0.0.0.0"
	MetricsPort = "7300"
)

// Config selects the listen addresses; empty fields fall back to the defaults above
type Config struct {
	HealthzAddr string
	MetricsAddr string
}

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer
	cfg     Config
}

func New(cfg Config) *Service {
	if cfg.HealthzAddr == "" {
		cfg.HealthzAddr = net.JoinHostPort(HealthzHost, HealthzPort)
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = net.JoinHostPort(MetricsHost, MetricsPort)
	}
	return &Service{
		Healthz: &HealthzServer{},
		Metrics: &MetricsServer{},
		cfg:     cfg,
	}
}

func (s *Service) Start(ctx context.Context) {
	log.Info("service starting")

	go func() {
		log.Info("starting healthz server", "addr", s.cfg.HealthzAddr)
		if err := s.Healthz.Start(ctx, s.cfg.HealthzAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error starting healthz server", "err", err)
			metrics.RecordErrorDetails("error starting healthz server", err)
		}
	}()

	go func() {
		log.Info("starting metrics server", "addr", s.cfg.MetricsAddr)
		if err := s.Metrics.Start(ctx, s.cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error starting metrics server", "err", err)
			metrics.RecordErrorDetails("error starting metrics server", err)
		}
	}()

	log.Info("service started")
}

func (s *Service) Shutdown(ctx context.Context) {
	log.Info("service shutting down")

	_ = s.Healthz.Shutdown(ctx)
	log.Info("healthz stopped")

	_ = s.Metrics.Shutdown(ctx)
	log.Info("metrics stopped")

	log.Info("service stopped")
}
