package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/meridian-news/meridian-ml/errors"
)

// trigramWeight scales character trigram features relative to whole tokens
const trigramWeight = 0.5

// HashEmbedder is a deterministic feature-hashing embedder. Tokens and
// character trigrams are hashed into signed buckets and the result is
// L2-normalised, so texts sharing vocabulary end up close in cosine distance.
type HashEmbedder struct {
	dims  int
	model string
}

// NewHashEmbedder returns an embedder producing vectors of width dims.
func NewHashEmbedder(dims int, model string) (*HashEmbedder, error) {
	if dims < 1 {
		return nil, errors.Newf("hash embedder needs at least 1 dimension, got %d", dims)
	}
	if model == "" {
		model = "feature-hash"
	}
	return &HashEmbedder{dims: dims, model: model}, nil
}

func (h *HashEmbedder) Dimensions() int { return h.dims }
func (h *HashEmbedder) Model() string   { return h.model }
func (h *HashEmbedder) Close() error    { return nil }

// Embed never fails except on cancellation.
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(errors.ErrTimeout, err.Error())
			}
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *HashEmbedder) vector(text string) []float32 {
	acc := make([]float64, h.dims)
	for _, tok := range tokenize(text) {
		h.add(acc, "w:"+tok, 1)
		padded := []rune("#" + tok + "#")
		for i := 0; i+3 <= len(padded); i++ {
			h.add(acc, "c:"+string(padded[i:i+3]), trigramWeight)
		}
	}

	var norm float64
	for _, x := range acc {
		norm += x * x
	}
	vec := make([]float32, h.dims)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, x := range acc {
		vec[i] = float32(x / norm)
	}
	return vec
}

func (h *HashEmbedder) add(acc []float64, feature string, weight float64) {
	f := fnv.New64a()
	f.Write([]byte(feature))
	sum := f.Sum64()
	bucket := int(sum % uint64(h.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

// tokenize lowercases and splits on anything that is not a letter or digit
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
