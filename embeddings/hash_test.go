package embeddings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedder(t *testing.T) {
	h, err := NewHashEmbedder(256, "")
	require.NoError(t, err)
	assert.Equal(t, "feature-hash", h.Model())
	assert.Equal(t, 256, h.Dimensions())

	vecs, err := h.Embed(context.Background(), []string{
		"Central bank raises interest rates",
		"central BANK raises interest rates!",
		"Striker scores twice in cup final",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	for _, v := range vecs {
		assert.Len(t, v, 256)
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, norm, 1e-5, "vectors are unit length")
	}

	assert.Equal(t, vecs[0], vecs[1], "case and punctuation are ignored")
	assert.Less(t, cosine(vecs[0], vecs[2]), 0.5)
}

func TestHashEmbedderDeterministic(t *testing.T) {
	h, _ := NewHashEmbedder(64, "m")
	a, err := h.Embed(context.Background(), []string{"same text"})
	require.NoError(t, err)
	b, err := h.Embed(context.Background(), []string{"same text"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHashEmbedderEdgeCases(t *testing.T) {
	_, err := NewHashEmbedder(0, "m")
	assert.Error(t, err)

	h, _ := NewHashEmbedder(8, "m")
	vecs, err := h.Embed(context.Background(), []string{"!!! ???"})
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vecs[0], "no tokens gives the zero vector")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Embed(ctx, []string{"x"})
	assert.Error(t, err)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"über", "café", "2024"}, tokenize("Über-Café, 2024"))
	assert.Empty(t, tokenize("  --  "))
}

func TestToFloat64(t *testing.T) {
	out := ToFloat64([][]float32{{1, 0.5}, {}})
	assert.Equal(t, [][]float64{{1, 0.5}, {}}, out)
}
