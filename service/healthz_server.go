package service

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

// HealthzServer answers liveness probes and reports the phase of the current run
type HealthzServer struct {
	server *http.Server
	phase  atomic.Value
}

func (h *HealthzServer) Handler() http.Handler {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(hdlr)
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	h.server = &http.Server{
		Handler: h.Handler(),
		Addr:    addr,
	}
	return h.server.ListenAndServe()
}

func (h *HealthzServer) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

// SetPhase records what the process is doing, eg. "running"
func (h *HealthzServer) SetPhase(phase string) {
	h.phase.Store(phase)
}

func (h *HealthzServer) Phase() string {
	if p, ok := h.phase.Load().(string); ok {
		return p
	}
	return "starting"
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	log.Debug("Received health check request", "path", r.URL.Path)
	w.Header().Set("X-Run-Phase", h.Phase())
	w.Write([]byte("OK")) //nolint:errcheck
}
