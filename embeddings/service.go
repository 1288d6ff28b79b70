package embeddings

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meridian-news/meridian-ml/am"
	"github.com/meridian-news/meridian-ml/db"
	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/internal/httpclient"
	"github.com/meridian-news/meridian-ml/logger"
)

// Service manages the configured embedder's lifecycle and validates
// embedding requests.
type Service struct {
	mu          sync.RWMutex
	cfg         am.EmbeddingsConfig
	log         *zap.SugaredLogger
	embedder    Embedder
	cacheDB     *sql.DB
	initialized bool
}

// NewService creates a service for cfg. Call Initialize before use.
func NewService(cfg am.EmbeddingsConfig, log *zap.SugaredLogger) (*Service, error) {
	switch cfg.Provider {
	case am.ProviderHash, am.ProviderOllama, am.ProviderOpenAI:
	default:
		return nil, errors.Newf("unknown embedding provider %q", cfg.Provider)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{cfg: cfg, log: log}, nil
}

// NewServiceWithEmbedder returns an initialized service around e.
func NewServiceWithEmbedder(e Embedder, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		cfg:         am.EmbeddingsConfig{Model: e.Model(), Dimensions: e.Dimensions()},
		log:         log,
		embedder:    e,
		initialized: true,
	}
}

// Initialize builds the provider client and opens the cache, if configured.
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	e, err := NewEmbedder(s.cfg)
	if err != nil {
		return errors.Wrap(err, "failed to initialize embedding provider")
	}

	if s.cfg.CachePath != "" {
		conn, err := db.OpenWithMigrations(s.cfg.CachePath, s.log)
		if err != nil {
			e.Close()
			return errors.Wrap(err, "failed to open embedding cache")
		}
		s.cacheDB = conn
		e = NewCachedEmbedder(e, NewSQLiteCache(conn), s.log)
	}

	s.embedder = e
	s.initialized = true
	s.log.Infow("Embedding service ready",
		logger.FieldProvider, s.cfg.Provider,
		logger.FieldModel, e.Model(),
		logger.FieldDimensions, e.Dimensions(),
		"cache", s.cfg.CachePath != "")
	return nil
}

// NewEmbedder constructs the provider named by cfg without a cache.
func NewEmbedder(cfg am.EmbeddingsConfig) (Embedder, error) {
	timeout := 60 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	switch cfg.Provider {
	case am.ProviderHash:
		return NewHashEmbedder(cfg.Dimensions, cfg.Model)
	case am.ProviderOllama:
		// Ollama normally listens on loopback or a private network
		allowPrivate := false
		client := httpclient.NewSaferClientWithOptions(timeout, httpclient.SaferClientOptions{BlockPrivateIP: &allowPrivate})
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimensions, cfg.BatchSize, client)
	case am.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg.BaseURL, cfg.Model, cfg.APIKey, cfg.Dimensions, cfg.BatchSize, httpclient.NewSaferClient(timeout))
	default:
		return nil, errors.Newf("unknown embedding provider %q", cfg.Provider)
	}
}

// ModelName reports the configured model.
func (s *Service) ModelName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.embedder != nil {
		return s.embedder.Model()
	}
	return s.cfg.Model
}

// Embed validates texts and embeds them. Empty batches and blank texts are
// invalid requests.
func (s *Service) Embed(ctx context.Context, texts []string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errors.Wrap(errors.ErrServiceUnavailable, "embedding service not initialized")
	}
	if len(texts) == 0 {
		return nil, errors.NewInvalidRequestError("no texts provided")
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, errors.NewInvalidRequestError("text at index %d is empty", i)
		}
	}

	start := time.Now()
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate embeddings")
	}
	width, err := checkWidths(vecs)
	if err != nil {
		return nil, err
	}

	logger.ChildLogger(s.log, logger.FieldsFromContext(ctx)...).Debugw("Embedded batch",
		logger.FieldModel, s.embedder.Model(),
		logger.FieldCount, len(texts),
		logger.FieldDimensions, width,
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	return &Result{
		Embeddings: vecs,
		ModelName:  s.embedder.Model(),
		Dimensions: width,
	}, nil
}

// Close releases the provider client and the cache database.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}
	var firstErr error
	if s.embedder != nil {
		if err := s.embedder.Close(); err != nil {
			firstErr = errors.Wrap(err, "failed to close embedding provider")
		}
	}
	if s.cacheDB != nil {
		if err := s.cacheDB.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "failed to close embedding cache")
		}
		s.cacheDB = nil
	}
	s.embedder = nil
	s.initialized = false
	return firstErr
}
