package embeddings

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/internal/httpclient"
)

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaEmbedder calls the /api/embed endpoint of an Ollama daemon.
type OllamaEmbedder struct {
	endpoint  string
	model     string
	batchSize int
	dims      atomic.Int64
	client    *httpclient.SaferClient
}

// NewOllamaEmbedder builds a client for baseURL (e.g. http://localhost:11434).
// dims may be 0 and is then learned from the first answer.
func NewOllamaEmbedder(baseURL, model string, dims, batchSize int, client *httpclient.SaferClient) (*OllamaEmbedder, error) {
	if model == "" {
		return nil, errors.New("ollama embedder needs a model name")
	}
	if client == nil {
		return nil, errors.New("ollama embedder needs an http client")
	}
	e := &OllamaEmbedder{
		endpoint:  strings.TrimRight(baseURL, "/") + "/api/embed",
		model:     model,
		batchSize: batchSize,
		client:    client,
	}
	e.dims.Store(int64(dims))
	return e, nil
}

func (e *OllamaEmbedder) Dimensions() int { return int(e.dims.Load()) }
func (e *OllamaEmbedder) Model() string   { return e.model }
func (e *OllamaEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := inBatches(ctx, texts, e.batchSize, e.embedBatch)
	if err != nil {
		return nil, errors.Wrapf(err, "ollama model %s", e.model)
	}
	if err := e.observe(vecs); err != nil {
		return nil, err
	}
	return vecs, nil
}

func (e *OllamaEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var resp ollamaEmbedResponse
	if err := e.client.PostJSON(ctx, e.endpoint, nil, ollamaEmbedRequest{Model: e.model, Input: batch}, &resp); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

// observe pins the width on first use and rejects answers that change it
func (e *OllamaEmbedder) observe(vecs [][]float32) error {
	width, err := checkWidths(vecs)
	if err != nil || width == 0 {
		return err
	}
	if e.dims.CompareAndSwap(0, int64(width)) {
		return nil
	}
	if want := e.dims.Load(); int64(width) != want {
		return errors.Newf("ollama model %s returned %d dimensions, want %d", e.model, width, want)
	}
	return nil
}
