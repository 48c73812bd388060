package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/semcache/fault"
)

func TestCosineSimilaritySymmetry(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2, 0.9}
	b := []float32{0.1, 0.4, -0.6, 0.5}

	assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
	assert.LessOrEqual(t, CosineSimilarity(a, b), 1.0)
	assert.GreaterOrEqual(t, CosineSimilarity(a, b), -1.0)
}

func TestCosineSimilaritySelf(t *testing.T) {
	a := []float32{1, 2, 3}
	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	other := []float32{1, 2, 3}

	assert.Equal(t, 0.0, CosineSimilarity(zero, other))
	assert.Equal(t, 0.0, CosineSimilarity(zero, zero))
}

func TestCosineSimilarityMismatchedLengths(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
}

func TestCosineSimilarityOpposite(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	assert.InDelta(t, -1.0, CosineSimilarity(a, b), 1e-9)
}

func TestValidateVector(t *testing.T) {
	require.NoError(t, ValidateVector([]float32{1, 2, 3}, 3))
	require.NoError(t, ValidateVector([]float32{1, 2, 3}, 0))

	err := ValidateVector([]float32{1, 2}, 3)
	assert.True(t, fault.Is(err, fault.InvalidInput))

	err = ValidateVector(nil, 3)
	assert.True(t, fault.Is(err, fault.InvalidInput))
}

func TestVectorCodecRoundTrip(t *testing.T) {
	vec := []float32{0.1, -2.5, 3.75, 0}
	assert.Equal(t, vec, DecodeVector(EncodeVector(vec)))
}
