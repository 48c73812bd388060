package cache

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/semcache/fault"
	"github.com/w-h-a/semcache/index"
	"github.com/w-h-a/semcache/index/memory"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if vec, ok := e.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

type fakeGenerator struct {
	answer string
	err    error
	calls  int
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

// flakyIndex wraps a real index and injects failures per Save call.
type flakyIndex struct {
	index.Index
	saveErrs  []error
	saveCalls int
	savedIds  []string
	searchErr error
}

func (f *flakyIndex) Save(ctx context.Context, rec index.Record) error {
	call := f.saveCalls
	f.saveCalls++
	f.savedIds = append(f.savedIds, rec.Id)
	if call < len(f.saveErrs) && f.saveErrs[call] != nil {
		return f.saveErrs[call]
	}
	return f.Index.Save(ctx, rec)
}

func (f *flakyIndex) Search(ctx context.Context, vector []float32, topK int) ([]index.Candidate, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.Index.Search(ctx, vector, topK)
}

func newService(idx index.Index, emb *fakeEmbedder, gen *fakeGenerator, opts ...Option) *Service {
	base := []Option{
		WithEmbedder(emb),
		WithIndex(idx),
		WithGenerator(gen),
	}
	return New(append(base, opts...)...)
}

const (
	questionA = "Are paper straws actually better for the environment?"
	questionB = "Do paper straws really help the environment?"
)

func TestMissThenHit(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex(index.WithVectorSize(3))

	emb := &fakeEmbedder{vectors: map[string][]float32{
		questionA: {1, 0, 0},
		questionB: {0.82, 0.5723635, 0}, // cosine ~0.82 against questionA
	}}
	gen := &fakeGenerator{answer: "Mostly, but it depends on disposal."}

	svc := newService(idx, emb, gen)

	// empty index: miss, generate, store
	result, err := svc.Process(ctx, questionA, "https://example.com/straws", "")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, OperationSavedNew, result.Operation)
	assert.Equal(t, gen.answer, result.Answer)
	assert.Empty(t, result.SimilarItems)
	assert.Empty(t, result.Warning)

	records, err := idx.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, questionA, records[0].Question)
	assert.Equal(t, "https://example.com/straws", records[0].Source)

	// paraphrase: hit, no write, no second generation
	result, err = svc.Process(ctx, questionB, "", "")
	require.NoError(t, err)
	assert.Equal(t, OperationFoundSimilar, result.Operation)
	require.Len(t, result.SimilarItems, 1)
	assert.Equal(t, questionA, result.SimilarItems[0].Question)
	assert.InDelta(t, 0.82, result.SimilarItems[0].Similarity, 1e-4)
	assert.Equal(t, gen.answer, result.Answer)
	assert.Equal(t, 1, gen.calls)

	records, err = idx.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestEmptyIndexIsMissNotError(t *testing.T) {
	idx := memory.NewIndex(index.WithVectorSize(3))
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	gen := &fakeGenerator{answer: "fresh"}

	svc := newService(idx, emb, gen)

	result, err := svc.Process(context.Background(), "q", "", "")
	require.NoError(t, err)
	assert.Equal(t, OperationSavedNew, result.Operation)
	assert.NotNil(t, result.SimilarItems)
	assert.Empty(t, result.SimilarItems)
}

func TestThresholdBoundaryIsInclusive(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex(index.WithVectorSize(3))

	// stored [3,4,0] vs query [1,0,0] has cosine exactly 3/5 = 0.6
	require.NoError(t, idx.Save(ctx, index.Record{
		Id:        "boundary",
		Question:  "stored",
		Answer:    "cached",
		Embedding: []float32{3, 4, 0},
		CreatedAt: time.Now().UTC(),
	}))

	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}

	svc := newService(idx, emb, &fakeGenerator{answer: "fresh"}, WithThreshold(0.6))

	result, err := svc.Process(ctx, "q", "", "")
	require.NoError(t, err)
	assert.Equal(t, OperationFoundSimilar, result.Operation)
	assert.Equal(t, "cached", result.Answer)
}

func TestScoreEpsilonBelowThresholdIsMiss(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex(index.WithVectorSize(3))

	require.NoError(t, idx.Save(ctx, index.Record{
		Id:        "boundary",
		Question:  "stored",
		Answer:    "cached",
		Embedding: []float32{3, 4, 0},
		CreatedAt: time.Now().UTC(),
	}))

	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	gen := &fakeGenerator{answer: "fresh"}

	svc := newService(idx, emb, gen, WithThreshold(math.Nextafter(0.6, 1)))

	result, err := svc.Process(ctx, "q", "", "")
	require.NoError(t, err)
	assert.Equal(t, OperationSavedNew, result.Operation)
	assert.Equal(t, "fresh", result.Answer)
}

func TestHitTiesBrokenByOldestRecord(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex(index.WithVectorSize(3))
	now := time.Now().UTC()

	require.NoError(t, idx.Save(ctx, index.Record{
		Id: "newer", Question: "same", Answer: "newer answer",
		Embedding: []float32{1, 0, 0}, CreatedAt: now.Add(time.Minute),
	}))
	require.NoError(t, idx.Save(ctx, index.Record{
		Id: "older", Question: "same", Answer: "older answer",
		Embedding: []float32{1, 0, 0}, CreatedAt: now,
	}))

	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}

	svc := newService(idx, emb, &fakeGenerator{})

	result, err := svc.Process(ctx, "q", "", "")
	require.NoError(t, err)
	require.Len(t, result.SimilarItems, 2)
	assert.Equal(t, "older", result.SimilarItems[0].Id)
	assert.Equal(t, "older answer", result.Answer)
}

func TestDuplicateKeyRetriesOnceWithFreshId(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewIndex(index.WithVectorSize(3))
	idx := &flakyIndex{
		Index:    inner,
		saveErrs: []error{fault.New(fault.DuplicateKey, "record already exists")},
	}

	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	gen := &fakeGenerator{answer: "fresh"}

	svc := newService(idx, emb, gen)

	result, err := svc.Process(ctx, "q", "", "")
	require.NoError(t, err)
	assert.Equal(t, OperationSavedNew, result.Operation)
	assert.Empty(t, result.Warning)

	require.Equal(t, 2, idx.saveCalls)
	assert.NotEqual(t, idx.savedIds[0], idx.savedIds[1])

	records, err := inner.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestPersistFailureStillReturnsAnswer(t *testing.T) {
	ctx := context.Background()
	idx := &flakyIndex{
		Index: memory.NewIndex(index.WithVectorSize(3)),
		saveErrs: []error{
			fault.New(fault.StoreUnavailable, "write timed out"),
		},
	}

	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	gen := &fakeGenerator{answer: "fresh"}

	svc := newService(idx, emb, gen)

	result, err := svc.Process(ctx, "q", "", "")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, OperationSavedNew, result.Operation)
	assert.Equal(t, "fresh", result.Answer)
	assert.Contains(t, result.Warning, "persist_failed")
}

func TestEmbedFailureAborts(t *testing.T) {
	idx := memory.NewIndex(index.WithVectorSize(3))
	emb := &fakeEmbedder{err: fault.New(fault.ProviderUnavailable, "embedding provider down")}
	gen := &fakeGenerator{answer: "fresh"}

	svc := newService(idx, emb, gen)

	_, err := svc.Process(context.Background(), "q", "", "")
	assert.True(t, fault.Is(err, fault.ProviderUnavailable))
	assert.Zero(t, gen.calls)
}

func TestSearchFailureAborts(t *testing.T) {
	idx := &flakyIndex{
		Index:     memory.NewIndex(index.WithVectorSize(3)),
		searchErr: fault.New(fault.StoreUnavailable, "store down"),
	}
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	gen := &fakeGenerator{answer: "fresh"}

	svc := newService(idx, emb, gen)

	_, err := svc.Process(context.Background(), "q", "", "")
	assert.True(t, fault.Is(err, fault.StoreUnavailable))
	assert.Zero(t, gen.calls)
}

func TestGeneratorFailureAborts(t *testing.T) {
	idx := memory.NewIndex(index.WithVectorSize(3))
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	gen := &fakeGenerator{err: fault.New(fault.ProviderRejected, "quota exceeded")}

	svc := newService(idx, emb, gen)

	_, err := svc.Process(context.Background(), "q", "", "")
	assert.True(t, fault.Is(err, fault.ProviderRejected))

	records, listErr := idx.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, records)
}

func TestEmptyQuestionRejected(t *testing.T) {
	svc := newService(
		memory.NewIndex(index.WithVectorSize(3)),
		&fakeEmbedder{},
		&fakeGenerator{},
	)

	_, err := svc.Process(context.Background(), "   ", "", "")
	assert.True(t, fault.Is(err, fault.InvalidInput))
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "q", buildPrompt("q", ""))
	assert.Equal(t, "q", buildPrompt("q", "  "))
	assert.Equal(t, "q\n\nContext:\nsome doc", buildPrompt("q", "some doc"))
}
