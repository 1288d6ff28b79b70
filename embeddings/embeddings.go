// Package embeddings turns text into vectors for the clustering pipeline.
//
// Model loading is out of scope for meridian-ml; an Embedder is either the
// local feature-hashing embedder or a client for a remote provider (Ollama,
// OpenAI-compatible). Service owns the configured Embedder's lifecycle and
// validates batches, and CachedEmbedder puts a content-addressed SQLite
// cache in front of any Embedder.
package embeddings

import (
	"context"

	"github.com/meridian-news/meridian-ml/errors"
)

// Embedder maps a batch of texts to index-aligned vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions is the vector width, or 0 while a remote provider has not
	// answered yet and none was configured.
	Dimensions() int
	Model() string
	Close() error
}

// Result is the answer to an embedding request.
type Result struct {
	Embeddings [][]float32 `json:"embeddings"`
	ModelName  string      `json:"model_name"`
	Dimensions int         `json:"dimensions"`
}

// inBatches calls fn on consecutive chunks of at most size texts and
// concatenates the answers. fn must return one vector per text.
func inBatches(ctx context.Context, texts []string, size int, fn func(context.Context, []string) ([][]float32, error)) ([][]float32, error) {
	if size < 1 {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrTimeout, err.Error())
		}
		end := min(start+size, len(texts))
		vecs, err := fn(ctx, texts[start:end])
		if err != nil {
			return nil, errors.Wrapf(err, "batch %d..%d", start, end-1)
		}
		if len(vecs) != end-start {
			return nil, errors.Newf("provider returned %d vectors for %d texts", len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// checkWidths verifies every vector has the same width and returns it
func checkWidths(vecs [][]float32) (int, error) {
	if len(vecs) == 0 {
		return 0, nil
	}
	width := len(vecs[0])
	if width == 0 {
		return 0, errors.New("provider returned an empty vector")
	}
	for i, v := range vecs {
		if len(v) != width {
			return 0, errors.Newf("vector %d has %d dimensions, want %d", i, len(v), width)
		}
	}
	return width, nil
}

// ToFloat64 widens a batch for the clustering engine.
func ToFloat64(vecs [][]float32) [][]float64 {
	out := make([][]float64, len(vecs))
	for i, v := range vecs {
		row := make([]float64, len(v))
		for j, x := range v {
			row[j] = float64(x)
		}
		out[i] = row
	}
	return out
}
