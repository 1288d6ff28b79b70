package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/meridian-news/meridian-ml/db"
	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/logger"
)

// Cache stores vectors under content keys.
type Cache interface {
	// Lookup returns the vectors it holds for keys; absent keys are omitted.
	Lookup(ctx context.Context, keys []string) (map[string][]float32, error)
	Store(ctx context.Context, model string, entries map[string][]float32) error
}

// CacheKey is the content address of text under model.
func CacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// CachedEmbedder answers from cache where it can and sends only the misses,
// deduplicated, to the wrapped Embedder. Cache failures are logged and the
// request falls through to the provider.
type CachedEmbedder struct {
	inner Embedder
	cache Cache
	log   *zap.SugaredLogger
}

// NewCachedEmbedder wraps inner with cache.
func NewCachedEmbedder(inner Embedder, cache Cache, log *zap.SugaredLogger) *CachedEmbedder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &CachedEmbedder{inner: inner, cache: cache, log: log}
}

func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }
func (c *CachedEmbedder) Model() string   { return c.inner.Model() }
func (c *CachedEmbedder) Close() error    { return c.inner.Close() }

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := c.inner.Model()
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = CacheKey(model, t)
	}

	hits, err := c.cache.Lookup(ctx, keys)
	if err != nil {
		c.log.Warnw("Embedding cache lookup failed", logger.FieldModel, model, logger.FieldError, err)
		hits = nil
	}
	want := c.inner.Dimensions()

	out := make([][]float32, len(texts))
	var missTexts []string
	missIndex := map[string]int{} // key -> position in missTexts
	for i, k := range keys {
		if v, ok := hits[k]; ok && (want == 0 || len(v) == want) {
			out[i] = v
			continue
		}
		if _, seen := missIndex[k]; !seen {
			missIndex[k] = len(missTexts)
			missTexts = append(missTexts, texts[i])
		}
	}

	c.log.Debugw("Embedding cache",
		logger.FieldModel, model,
		logger.FieldCount, len(texts),
		"hits", len(texts)-countNil(out),
		"misses", len(missTexts))

	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, errors.AssertionFailedf("embedder returned %d vectors for %d texts", len(fresh), len(missTexts))
	}

	entries := make(map[string][]float32, len(missTexts))
	for i, k := range keys {
		if out[i] == nil {
			out[i] = fresh[missIndex[k]]
			entries[k] = out[i]
		}
	}
	if err := c.cache.Store(ctx, model, entries); err != nil {
		if db.IsDatabaseClosed(err) {
			// shutting down; the vectors are still returned
			c.log.Debugw("Embedding cache closed, skipping store", logger.FieldModel, model)
		} else {
			c.log.Warnw("Embedding cache store failed", logger.FieldModel, model, logger.FieldError, err)
		}
	}
	return out, nil
}

func countNil(vecs [][]float32) int {
	n := 0
	for _, v := range vecs {
		if v == nil {
			n++
		}
	}
	return n
}
