package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	original := New("eigen decomposition did not converge")
	wrapped := Wrap(original, "spectral layout")

	assert.Contains(t, wrapped.Error(), "spectral layout")
	assert.Contains(t, wrapped.Error(), "did not converge")
	assert.True(t, Is(wrapped, original))
}

func TestNewInvalidRequestError(t *testing.T) {
	err := NewInvalidRequestError("vector %d has %d dimensions, want %d", 3, 2, 4)

	require.Error(t, err)
	assert.True(t, IsInvalidRequestError(err))
	assert.False(t, IsServiceUnavailableError(err))
	assert.Contains(t, err.Error(), "vector 3 has 2 dimensions, want 4")
}

func TestWrapInvalidRequest(t *testing.T) {
	err := WrapInvalidRequest(New("unexpected EOF"), "decode cluster request")

	assert.True(t, IsInvalidRequestError(err))
	assert.Contains(t, err.Error(), "decode cluster request")
	assert.Contains(t, err.Error(), "unexpected EOF")
}

func TestSentinelChecksAcrossWrapping(t *testing.T) {
	err := Wrapf(ErrServiceUnavailable, "clustering slots exhausted (%d in flight)", 4)
	assert.True(t, IsServiceUnavailableError(err))
	assert.False(t, IsInvalidRequestError(err))

	err = Wrap(ErrUnauthorized, "bearer token mismatch")
	assert.True(t, IsUnauthorizedError(err))
}

func TestNilHandling(t *testing.T) {
	assert.False(t, IsInvalidRequestError(nil))
	assert.False(t, IsServiceUnavailableError(nil))
	assert.False(t, IsUnauthorizedError(nil))
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, WithHint(nil, "hint"))
}

func TestHintsSurviveWrapping(t *testing.T) {
	err := WithHint(New("embedding provider unreachable"), "check embeddings.base_url")
	err = Wrap(err, "embed texts")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "check embeddings.base_url", hints[0])
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")

	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
}

func ExampleWrap() {
	baseErr := New("connection refused")
	err := Wrap(baseErr, "failed to reach embedding provider")
	fmt.Println(err)
	// Output: failed to reach embedding provider: connection refused
}
