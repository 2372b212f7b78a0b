package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/agentrelay/config"
	"github.com/BaSui01/agentrelay/internal/metrics"
	"github.com/BaSui01/agentrelay/internal/server"
	"github.com/BaSui01/agentrelay/registry"
	registryserver "github.com/BaSui01/agentrelay/registry/server"
)

// Server wires the registry storage, directories and HTTP listeners.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager
}

// NewServer assembles a Server from the configuration. The storage
// backend is selected here; a Redis backend that cannot be reached is a
// construction error.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector("agentrelay")
	handler := registryserver.New(
		registry.NewAgentDirectory(store, logger),
		registry.NewToolDirectory(store, logger),
		&registryserver.Config{Logger: logger, Metrics: collector},
	)

	httpManager := server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", collector.Handler())
	metricsManager := server.NewManager(metricsMux, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	return &Server{
		cfg:            cfg,
		logger:         logger,
		httpManager:    httpManager,
		metricsManager: metricsManager,
	}, nil
}

func newStore(cfg *config.Config, logger *zap.Logger) (registry.Store, error) {
	switch cfg.Registry.Backend {
	case config.BackendMemory:
		logger.Info("using in-memory registry store")
		return registry.NewMemoryStore(), nil
	case config.BackendRedis:
		store, err := registry.NewRedisStore(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis store: %w", err)
		}
		logger.Info("using redis registry store", zap.String("addr", cfg.Redis.Addr))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Registry.Backend)
	}
}

// Start launches the API and metrics listeners.
func (s *Server) Start() error {
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("start HTTP server: %w", err)
	}
	if err := s.metricsManager.Start(); err != nil {
		_ = s.httpManager.Shutdown(context.Background())
		return fmt.Errorf("start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("backend", s.cfg.Registry.Backend),
	)
	return nil
}

// WaitForShutdown blocks on the API listener, then stops both listeners.
func (s *Server) WaitForShutdown() {
	s.httpManager.WaitForShutdown()
	if err := s.metricsManager.Shutdown(context.Background()); err != nil {
		s.logger.Error("metrics server shutdown failed", zap.Error(err))
	}
}
