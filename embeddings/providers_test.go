package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/internal/httpclient"
)

func TestOllamaEmbedder(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.LessOrEqual(t, len(req.Input), 2, "batches are capped")
		calls.Add(1)

		resp := ollamaEmbedResponse{Model: req.Model}
		for _, in := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{float32(len(in)), 1, 0})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e, err := NewOllamaEmbedder(server.URL+"/", "nomic-embed-text", 0, 2, httpclient.WrapClient(server.Client()))
	require.NoError(t, err)
	assert.Equal(t, 0, e.Dimensions())

	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	for i, v := range vecs {
		assert.Equal(t, float32(i+1), v[0], "order is preserved across batches")
	}
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, 3, e.Dimensions(), "width learned from the first answer")
}

func TestOllamaEmbedderRejectsShortAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embeddings": [[1, 2]]}`))
	}))
	defer server.Close()

	e, err := NewOllamaEmbedder(server.URL, "m", 0, 10, httpclient.WrapClient(server.Client()))
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 1 vectors for 2 texts")
}

func TestOllamaEmbedderDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embeddings": [[1, 2]]}`))
	}))
	defer server.Close()

	e, err := NewOllamaEmbedder(server.URL, "m", 768, 10, httpclient.WrapClient(server.Client()))
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 768")
}

func TestOpenAIEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, req.Dimensions)

		// answer in reverse order
		w.Write([]byte(`{"data": [
			{"index": 1, "embedding": [0, 1]},
			{"index": 0, "embedding": [1, 0]}
		], "model": "text-embedding-3-small"}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(server.URL+"/v1", "text-embedding-3-small", "sk-test", 2, 16, httpclient.WrapClient(server.Client()))
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestOpenAIEmbedderBadIndexes(t *testing.T) {
	for name, body := range map[string]string{
		"out of range": `{"data": [{"index": 5, "embedding": [1]}]}`,
		"duplicate":    `{"data": [{"index": 0, "embedding": [1]}, {"index": 0, "embedding": [1]}]}`,
		"missing":      `{"data": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			e, err := NewOpenAIEmbedder(server.URL, "m", "", 0, 16, httpclient.WrapClient(server.Client()))
			require.NoError(t, err)
			_, err = e.Embed(context.Background(), []string{"only"})
			assert.Error(t, err)
		})
	}
}

func TestProviderUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(server.URL, "m", "", 0, 16, httpclient.WrapClient(server.Client()))
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), []string{"x"})
	assert.True(t, errors.IsServiceUnavailableError(err))
}

func TestProviderConstructorsValidate(t *testing.T) {
	client := httpclient.WrapClient(http.DefaultClient)
	_, err := NewOllamaEmbedder("http://x", "", 0, 1, client)
	assert.Error(t, err)
	_, err = NewOpenAIEmbedder("http://x", "m", "", 0, 1, nil)
	assert.Error(t, err)
}
