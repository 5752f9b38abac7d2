package watcher

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chainsafe/tornado-prover/pkg/app"
	apphttp "github.com/chainsafe/tornado-prover/pkg/app/http"
	"github.com/chainsafe/tornado-prover/pkg/config"
	"github.com/chainsafe/tornado-prover/pkg/withdraw"
)

const defaultHTTPMiddlewareTimeout = 60 * time.Second

// Server runs the watcher loop and its operational HTTP server.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
}

var _ app.Runner = (*Server)(nil)

// NewServer creates a watcher Server.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Run blocks until an OS shutdown signal is received or the HTTP server fails.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.logger.Info("Starting event cache watcher",
		zap.Int("instances", len(s.cfg.Instances)),
		zap.Duration("interval", s.cfg.Sync.Interval))

	svc, cleanup, err := withdraw.Open(ctx, s.cfg, nil, s.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	w := New(svc, s.cfg.Sync.Interval, s.logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()

	err = apphttp.ServeAndWait(ctx, NewRouter(s.cfg, w, svc, s.logger), s.logger, &s.cfg.Server)
	stop()
	wg.Wait()
	return err
}

// NewRouter builds the watcher's HTTP routes.
func NewRouter(cfg *config.Config, w *Watcher, svc Service, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultHTTPMiddlewareTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/ready", func(rw http.ResponseWriter, _ *http.Request) {
		if !w.IsReady() {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_, _ = rw.Write([]byte("NOT_READY"))
			return
		}
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("READY"))
	})

	if cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled", zap.String("path", "/metrics"))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/instances", apphttp.HandleError(func(rw http.ResponseWriter, req *http.Request) error {
			status, err := svc.Status(req.Context())
			if err != nil {
				logger.Error("Failed to read cache status", zap.Error(err))
				return err
			}
			return apphttp.WriteJSON(rw, http.StatusOK, map[string]any{
				"instances": status,
				"ready":     w.IsReady(),
			})
		}))
	})

	return r
}
