// Package server exposes the embedding and clustering operations over HTTP.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/meridian-news/meridian-ml/am"
	"github.com/meridian-news/meridian-ml/cluster"
	"github.com/meridian-news/meridian-ml/embeddings"
	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/logger"
)

// Embedder is the slice of embeddings.Service the handlers use
type Embedder interface {
	Embed(ctx context.Context, texts []string) (*embeddings.Result, error)
	ModelName() string
}

// Clusterer is the slice of cluster.Engine the handlers use
type Clusterer interface {
	ComputeClusters(vectors [][]float64, minClusterSize int) (*cluster.Result, error)
}

// runtimeSettings are the config values that can change on reload
type runtimeSettings struct {
	authToken      string
	limiter        *rate.Limiter // nil = unlimited
	minClusterSize int
	origins        []string
	requestTimeout time.Duration
	maxBodyBytes   int64
}

// Server hosts the ML API.
type Server struct {
	engine   Clusterer
	embedder Embedder
	logger   *zap.SugaredLogger

	settings atomic.Pointer[runtimeSettings]

	// clustering is CPU bound; slots are fixed for the process lifetime
	clusterSlots *semaphore.Weighted
	slotCapacity int64
	inFlight     atomic.Int64

	router        *mux.Router
	httpServer    *http.Server
	configWatcher *am.ConfigWatcher
	started       time.Time
	state         atomic.Int32
	stopOnce      sync.Once
}

// New builds a server from cfg. The caller owns engine and embedder.
func New(cfg *am.Config, engine Clusterer, embedder Embedder, log *zap.SugaredLogger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config is required")
	}
	if engine == nil || embedder == nil {
		return nil, errors.New("server needs a clustering engine and an embedder")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	slots := int64(cfg.Server.MaxConcurrentClusterings)
	s := &Server{
		engine:       engine,
		embedder:     embedder,
		logger:       log.Named("server"),
		clusterSlots: semaphore.NewWeighted(slots),
		slotCapacity: slots,
		started:      time.Now(),
	}
	s.ApplyConfig(cfg)
	s.router = s.routes()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if cfg.Server.AuthToken == "" {
		s.logger.Warnw("No API token configured, /embeddings and /cluster are unauthenticated",
			"hint", "set MERIDIAN_ML_API_TOKEN")
	}
	return s, nil
}

// ApplyConfig swaps in the reloadable settings: auth token, rate limit,
// default min_cluster_size, CORS origins, timeouts and body limit.
func (s *Server) ApplyConfig(cfg *am.Config) {
	next := &runtimeSettings{
		authToken:      cfg.Server.AuthToken,
		minClusterSize: cfg.Clustering.MinClusterSize,
		origins:        cfg.GetServerAllowedOrigins(),
		requestTimeout: cfg.RequestTimeout(),
		maxBodyBytes:   cfg.Server.MaxBodyBytes,
	}
	if cfg.Server.RateLimitPerSecond > 0 {
		next.limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimitPerSecond), cfg.Server.RateLimitBurst)
	}
	if next.minClusterSize < 1 {
		next.minClusterSize = cluster.DefaultMinClusterSize
	}
	s.settings.Store(next)
}

func (s *Server) current() *runtimeSettings {
	return s.settings.Load()
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// WatchConfig reloads path on change and applies the new settings.
// Failure to watch is logged; the server keeps its current settings.
func (s *Server) WatchConfig(path string) {
	if path == "" {
		s.logger.Infow("No project config file found, config watching disabled")
		return
	}
	cw, err := am.NewConfigWatcher(path)
	if err != nil {
		s.logger.Warnw("Failed to create config watcher, restart required for config changes",
			logger.FieldError, err)
		return
	}
	s.configWatcher = cw
	am.SetGlobalWatcher(cw)

	cw.OnReload(func(cfg *am.Config) error {
		s.ApplyConfig(cfg)
		s.logger.Infow("Config reloaded, server settings updated",
			"auth_enabled", cfg.Server.AuthToken != "",
			"rate_limit_per_second", cfg.Server.RateLimitPerSecond,
			logger.FieldMinClusterSize, cfg.Clustering.MinClusterSize)
		return nil
	})
	cw.Start()
	s.logger.Infow("Config watcher started", logger.FieldPath, path)
}

// ListenAndServe binds addr and serves until Stop.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Stop. It returns nil after a
// graceful stop.
func (s *Server) Serve(l net.Listener) error {
	s.setState(ServerStateRunning)
	s.logger.Infow("HTTP server listening", logger.FieldAddress, l.Addr().String())

	err := s.httpServer.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, "http server failed")
}

// Stop drains in-flight requests, bounded by ctx, and stops the config
// watcher. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.logger.Infow("Initiating server shutdown")
		s.setState(ServerStateDraining)

		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = errors.Wrap(shutdownErr, "graceful shutdown incomplete")
			s.logger.Warnw("Forcing connections closed", logger.FieldError, shutdownErr)
			s.httpServer.Close()
		}

		if s.configWatcher != nil {
			if stopErr := s.configWatcher.Stop(); stopErr != nil {
				s.logger.Warnw("Failed to stop config watcher", logger.FieldError, stopErr)
			}
			am.SetGlobalWatcher(nil)
		}

		s.setState(ServerStateStopped)
		s.logger.Infow("Server shutdown complete")
	})
	return err
}

// State reports the lifecycle state.
func (s *Server) State() ServerState {
	return ServerState(s.state.Load())
}

func (s *Server) setState(state ServerState) {
	s.state.Store(int32(state))
	s.logger.Debugw("Server state changed", "new_state", state.String())
}
