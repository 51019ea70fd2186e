// Package server wires the host process together: configuration, logging,
// metrics, the coordinator, the tray probe, and the HTTP/WebSocket control
// surface on a suspendable loopback listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/thehaigo/desktop/internal/api/http"
	"github.com/thehaigo/desktop/internal/api/middleware"
	"github.com/thehaigo/desktop/internal/api/ws"
	"github.com/thehaigo/desktop/internal/domain/env"
	"github.com/thehaigo/desktop/internal/domain/listeners"
	"github.com/thehaigo/desktop/internal/domain/tray"
	"github.com/thehaigo/desktop/internal/infrastructure/config"
	"github.com/thehaigo/desktop/internal/infrastructure/logging"
	"github.com/thehaigo/desktop/internal/infrastructure/manifest"
	"github.com/thehaigo/desktop/internal/infrastructure/monitoring"
	"github.com/thehaigo/desktop/internal/shared/paths"
)

// Server owns the control surface and the host dependencies behind it.
type Server struct {
	router   *gin.Engine
	env      *env.Env
	registry *listeners.Registry
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	manifest *manifest.Manifest

	mu       sync.Mutex
	listener *listeners.Suspendable
	httpSrv  *http.Server

	quit     chan struct{}
	quitOnce sync.Once
}

// NewServer creates a new server instance.
func NewServer(cfg *config.Config) (*Server, error) {
	return newServer(cfg, monitoring.NewMetrics())
}

func newServer(cfg *config.Config, metrics *monitoring.Metrics) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		l, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		logger = l
	}

	logger.Info("initializing desktop host",
		zap.String("addr", cfg.Server.Addr()),
		zap.Bool("tray_disabled", cfg.Tray.Disabled),
	)

	manifestPath := cfg.Manifest.Path
	if manifestPath == "" {
		manifestPath = paths.FindManifest()
	}
	m, err := manifest.LoadOrDefault(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}

	registry := listeners.NewRegistry(logger.Component("listeners"))

	s := &Server{
		registry: registry,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		manifest: m,
		quit:     make(chan struct{}),
	}

	icon := m.Icon
	if icon == "" {
		icon = cfg.Tray.IconName
	}

	// The probe runs inside the coordinator's isolated worker on first use.
	probe := func(ctx context.Context) (env.SideService, error) {
		return tray.Dial(ctx, tray.Options{
			ID:       m.Name,
			Title:    m.Name,
			IconName: icon,
			Tooltip:  m.Tooltip,
			Disabled: cfg.Tray.Disabled,
			Logger:   logger.Component("tray"),
			OnQuit:   s.RequestQuit,
		})
	}

	s.env = env.New(env.Options{
		Logger:   logger.Component("env"),
		Metrics:  metrics,
		Probe:    probe,
		Registry: registry,
	})

	for key, value := range m.Defaults {
		s.env.Put(key, value)
	}
	if len(m.Defaults) > 0 {
		logger.Info("manifest defaults seeded",
			zap.String("app", m.Name),
			zap.Int("keys", len(m.Defaults)),
		)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(s.env, logger.Component("http"))
	wsHandler := ws.NewHandler(s.env, logger.Component("ws"), metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Shared state
	router.GET("/kv/:key", handlers.GetValue)
	router.PUT("/kv/:key", handlers.PutValue)
	router.DELETE("/kv/:key", handlers.PopValue)
	router.GET("/kv/:key/await", handlers.AwaitValue)

	// OS lifecycle and windows
	router.POST("/events", handlers.PublishEvent)
	router.GET("/windows", handlers.ListWindows)
	router.POST("/reconnect", handlers.Reconnect)
	router.GET("/sideservice", handlers.SideServiceStatus)
	router.POST("/callbacks", handlers.RegisterCallback)
	router.POST("/logs", handlers.StreamLogs)

	// WebSocket attachment surface
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router = router
	logger.Info("server initialized", zap.String("app", m.Name))
	return s, nil
}

// Env returns the coordinator, for boot-time publications.
func (s *Server) Env() *env.Env {
	return s.env
}

// Router returns the HTTP handler tree.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Quit is closed when something inside the host (the tray's quit entry)
// requests shutdown.
func (s *Server) Quit() <-chan struct{} {
	return s.quit
}

// RequestQuit asks the host to shut down. Idempotent.
func (s *Server) RequestQuit() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Addr returns the bound listen address, or the configured one before Run.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Server.Addr()
}

// Run binds the control surface and serves until Shutdown. The listener is
// suspendable and registered in the listener registry, so platform reconnect
// signals cycle the real socket.
func (s *Server) Run() error {
	ln, err := listeners.Listen(s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.config.Server.Addr(), err)
	}

	httpSrv := &http.Server{Handler: s.router}

	s.mu.Lock()
	s.listener = ln
	s.httpSrv = httpSrv
	s.mu.Unlock()

	s.registry.Add("http", ln)
	s.logger.Info("control surface listening", zap.String("addr", ln.Addr().String()))

	err = httpSrv.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Shutdown drains the control surface, stops the coordinator, and flushes
// the logger.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	s.mu.Lock()
	httpSrv := s.httpSrv
	s.mu.Unlock()

	var firstErr error
	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
			firstErr = err
		}
	}
	s.registry.Remove("http")

	if err := s.env.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	s.logger.Sync()
	return firstErr
}
