package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/vitibrasil/internal/api/middleware"
	apihttp "github.com/GriffinCanCode/vitibrasil/internal/http"
	"github.com/GriffinCanCode/vitibrasil/internal/infrastructure/config"
	"github.com/GriffinCanCode/vitibrasil/internal/infrastructure/logging"
	"github.com/GriffinCanCode/vitibrasil/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/vitibrasil/internal/store"
	"github.com/GriffinCanCode/vitibrasil/internal/ws"
)

const shutdownTimeout = 15 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	store   *store.Store
	hub     *ws.Hub
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing vitibrasil server",
		zap.String("port", cfg.Server.Port),
		zap.String("upstream", cfg.Scraper.BaseURL),
		zap.Int("workers", cfg.Scraper.Workers),
	)

	metrics := monitoring.NewMetrics()

	aggregator, client, err := NewAggregator(cfg.Scraper, logger.Logger, metrics)
	if err != nil {
		return nil, err
	}

	hub := ws.NewHub(logger.Logger)
	aggregator.SetObserver(hub)

	db, err := OpenStore(ctx, cfg.Database, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	// a typed nil would defeat the handlers' disabled check
	var recordStore apihttp.Store
	if db != nil {
		recordStore = db
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger.Logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.BodyLimit(middleware.MaxJSONSize))

	var sweepLimit gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.Int("sweep_rps", cfg.RateLimit.SweepsPerSecond),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
		sweepLimit = middleware.GlobalRateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.SweepsPerSecond,
			Burst:             cfg.RateLimit.SweepBurst,
		})
	}

	handlers := apihttp.NewHandlers(aggregator, recordStore, logger.Logger)
	handlers.SetUpstreamStatus(func() string { return client.BreakerState().String() })
	handlers.Register(router, sweepLimit)

	router.GET("/ws/sweeps", hub.HandleConnection)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:   db,
		hub:     hub,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to drain HTTP server", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to shut down http server: %w", err))
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("Failed to close store", zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
	}

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
