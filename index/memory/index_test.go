package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/semcache/fault"
	"github.com/w-h-a/semcache/index"
)

func newTestIndex() index.Index {
	return NewIndex(index.WithVectorSize(3))
}

func rec(id string, vec []float32, createdAt time.Time) index.Record {
	return index.Record{
		Id:        id,
		Question:  "question " + id,
		Answer:    "answer " + id,
		Embedding: vec,
		CreatedAt: createdAt,
	}
}

func TestSearchRanksByDescendingSimilarity(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, idx.Save(ctx, rec("a", []float32{1, 0, 0}, now)))
	require.NoError(t, idx.Save(ctx, rec("b", []float32{0.9, 0.1, 0}, now)))
	require.NoError(t, idx.Save(ctx, rec("c", []float32{0, 1, 0}, now)))

	candidates, err := idx.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	assert.Equal(t, "a", candidates[0].Id)
	assert.Equal(t, "b", candidates[1].Id)
	assert.Equal(t, "c", candidates[2].Id)
	assert.InDelta(t, 1.0, candidates[0].Score, 1e-9)
}

func TestSearchHonorsTopK(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, idx.Save(ctx, rec(id, []float32{1, 0, 0}, now)))
	}

	candidates, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := newTestIndex()

	candidates, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSearchInvalidTopK(t *testing.T) {
	idx := newTestIndex()

	_, err := idx.Search(context.Background(), []float32{1, 0, 0}, 0)
	assert.True(t, fault.Is(err, fault.InvalidInput))
}

func TestSearchIsIdempotent(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, idx.Save(ctx, rec("a", []float32{1, 0, 0}, now)))
	require.NoError(t, idx.Save(ctx, rec("b", []float32{0, 1, 0}, now.Add(time.Second))))

	first, err := idx.Search(ctx, []float32{0.5, 0.5, 0}, 5)
	require.NoError(t, err)

	second, err := idx.Search(ctx, []float32{0.5, 0.5, 0}, 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSaveRejectsDuplicateId(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, idx.Save(ctx, rec("a", []float32{1, 0, 0}, now)))

	err := idx.Save(ctx, rec("a", []float32{0, 1, 0}, now))
	assert.True(t, fault.Is(err, fault.DuplicateKey))

	// the original record must be untouched
	got, err := idx.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, got.Embedding)
}

func TestSaveRejectsWrongDimension(t *testing.T) {
	idx := newTestIndex()

	err := idx.Save(context.Background(), rec("a", []float32{1, 0}, time.Now().UTC()))
	assert.True(t, fault.Is(err, fault.InvalidInput))
}

func TestSearchRejectsWrongDimension(t *testing.T) {
	idx := newTestIndex()

	_, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	assert.True(t, fault.Is(err, fault.InvalidInput))
}

func TestSaveCopiesEmbedding(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()

	vec := []float32{1, 0, 0}
	require.NoError(t, idx.Save(ctx, rec("a", vec, time.Now().UTC())))

	vec[0] = -1

	got, err := idx.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, got.Embedding)
}

func TestGetMissing(t *testing.T) {
	idx := newTestIndex()

	_, err := idx.Get(context.Background(), "nope")
	assert.True(t, fault.Is(err, fault.NotFound))
}

func TestListOrdersByCreatedAt(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, idx.Save(ctx, rec("newer", []float32{1, 0, 0}, now.Add(time.Minute))))
	require.NoError(t, idx.Save(ctx, rec("older", []float32{0, 1, 0}, now)))

	records, err := idx.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "older", records[0].Id)
	assert.Equal(t, "newer", records[1].Id)
}

func TestDelete(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()

	require.NoError(t, idx.Save(ctx, rec("a", []float32{1, 0, 0}, time.Now().UTC())))
	require.NoError(t, idx.Delete(ctx, "a"))

	err := idx.Delete(ctx, "a")
	assert.True(t, fault.Is(err, fault.NotFound))
}
