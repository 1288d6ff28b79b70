package embeddings

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/internal/httpclient"
)

type openAIEmbedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}

// OpenAIEmbedder calls an OpenAI-compatible /v1/embeddings endpoint.
type OpenAIEmbedder struct {
	endpoint  string
	model     string
	apiKey    string
	batchSize int
	// requested is sent as the dimensions parameter when non-zero
	requested int
	dims      atomic.Int64
	client    *httpclient.SaferClient
}

// NewOpenAIEmbedder builds a client for baseURL, with or without a
// trailing /v1.
func NewOpenAIEmbedder(baseURL, model, apiKey string, dims, batchSize int, client *httpclient.SaferClient) (*OpenAIEmbedder, error) {
	if model == "" {
		return nil, errors.New("openai embedder needs a model name")
	}
	if client == nil {
		return nil, errors.New("openai embedder needs an http client")
	}
	base := strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/v1")
	e := &OpenAIEmbedder{
		endpoint:  base + "/v1/embeddings",
		model:     model,
		apiKey:    apiKey,
		batchSize: batchSize,
		requested: dims,
		client:    client,
	}
	e.dims.Store(int64(dims))
	return e, nil
}

func (e *OpenAIEmbedder) Dimensions() int { return int(e.dims.Load()) }
func (e *OpenAIEmbedder) Model() string   { return e.model }
func (e *OpenAIEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := inBatches(ctx, texts, e.batchSize, e.embedBatch)
	if err != nil {
		return nil, errors.Wrapf(err, "openai model %s", e.model)
	}
	width, err := checkWidths(vecs)
	if err != nil {
		return nil, err
	}
	if width == 0 {
		return vecs, nil
	}
	if !e.dims.CompareAndSwap(0, int64(width)) && e.dims.Load() != int64(width) {
		return nil, errors.Newf("openai model %s returned %d dimensions, want %d", e.model, width, e.dims.Load())
	}
	return vecs, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	headers := map[string]string{}
	if e.apiKey != "" {
		headers["Authorization"] = "Bearer " + e.apiKey
	}

	var resp openAIEmbedResponse
	req := openAIEmbedRequest{Model: e.model, Input: batch, Dimensions: e.requested}
	if err := e.client.PostJSON(ctx, e.endpoint, headers, req, &resp); err != nil {
		return nil, err
	}

	// data is not guaranteed to come back in input order
	out := make([][]float32, len(batch))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(batch) {
			return nil, errors.Newf("embedding index %d out of range for batch of %d", d.Index, len(batch))
		}
		if out[d.Index] != nil {
			return nil, errors.Newf("duplicate embedding index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, errors.Newf("no embedding returned for input %d", i)
		}
	}
	return out, nil
}
