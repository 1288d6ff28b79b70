package embeddings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/meridian-news/meridian-ml/am"
	"github.com/meridian-news/meridian-ml/errors"
)

func hashConfig() am.EmbeddingsConfig {
	return am.EmbeddingsConfig{
		Provider:   am.ProviderHash,
		Model:      "feature-hash-32",
		Dimensions: 32,
		BatchSize:  8,
	}
}

func TestServiceLifecycle(t *testing.T) {
	svc, err := NewService(hashConfig(), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), []string{"x"})
	assert.True(t, errors.IsServiceUnavailableError(err), "embedding before Initialize")

	require.NoError(t, svc.Initialize())
	require.NoError(t, svc.Initialize(), "idempotent")

	res, err := svc.Embed(context.Background(), []string{"markets rally", "storm warning"})
	require.NoError(t, err)
	assert.Equal(t, "feature-hash-32", res.ModelName)
	assert.Equal(t, 32, res.Dimensions)
	assert.Len(t, res.Embeddings, 2)

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())
	assert.Equal(t, "feature-hash-32", svc.ModelName())
}

func TestServiceValidation(t *testing.T) {
	svc := NewServiceWithEmbedder(&countingEmbedder{dims: 2, model: "m"}, nil)

	_, err := svc.Embed(context.Background(), nil)
	assert.True(t, errors.IsInvalidRequestError(err))

	_, err = svc.Embed(context.Background(), []string{"ok", "  "})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))
	assert.Contains(t, err.Error(), "index 1")
}

func TestServiceWithCache(t *testing.T) {
	cfg := hashConfig()
	cfg.CachePath = filepath.Join(t.TempDir(), "cache.db")

	svc, err := NewService(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Initialize())
	defer svc.Close()

	first, err := svc.Embed(context.Background(), []string{"election results"})
	require.NoError(t, err)
	second, err := svc.Embed(context.Background(), []string{"election results"})
	require.NoError(t, err)
	assert.Equal(t, first.Embeddings, second.Embeddings)

	var n int
	require.NoError(t, svc.cacheDB.QueryRow("SELECT COUNT(*) FROM embedding_cache").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestNewServiceRejectsUnknownProvider(t *testing.T) {
	_, err := NewService(am.EmbeddingsConfig{Provider: "word2vec"}, nil)
	assert.Error(t, err)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(am.EmbeddingsConfig{Provider: am.ProviderOllama, BaseURL: "http://localhost:11434", Model: "nomic-embed-text"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaEmbedder{}, e)

	e, err = NewEmbedder(am.EmbeddingsConfig{Provider: am.ProviderOpenAI, BaseURL: "https://api.openai.com/v1", Model: "text-embedding-3-small", Dimensions: 256})
	require.NoError(t, err)
	assert.Equal(t, 256, e.Dimensions())
	assert.Equal(t, "https://api.openai.com/v1/embeddings", e.(*OpenAIEmbedder).endpoint)

	_, err = NewEmbedder(am.EmbeddingsConfig{Provider: am.ProviderHash})
	assert.Error(t, err, "hash embedder needs dimensions")
}
