package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/w-h-a/semcache/fault"
	"github.com/w-h-a/semcache/index"
)

type memoryIndex struct {
	options index.Options
	records map[string]index.Record
	mtx     sync.RWMutex
}

func (i *memoryIndex) Save(ctx context.Context, rec index.Record) error {
	if err := index.ValidateVector(rec.Embedding, i.options.VectorSize); err != nil {
		return err
	}

	i.mtx.Lock()
	defer i.mtx.Unlock()

	if _, exists := i.records[rec.Id]; exists {
		return fault.Newf(fault.DuplicateKey, "record %s already exists", rec.Id)
	}

	cpy := make([]float32, len(rec.Embedding))
	copy(cpy, rec.Embedding)
	rec.Embedding = cpy

	i.records[rec.Id] = rec

	return nil
}

func (i *memoryIndex) Search(ctx context.Context, vector []float32, topK int) ([]index.Candidate, error) {
	if topK < 1 {
		return nil, fault.New(fault.InvalidInput, "topK must be positive")
	}
	if err := index.ValidateVector(vector, i.options.VectorSize); err != nil {
		return nil, err
	}

	i.mtx.RLock()
	defer i.mtx.RUnlock()

	candidates := make([]index.Candidate, 0, len(i.records))

	for _, rec := range i.records {
		score := index.CosineSimilarity(vector, rec.Embedding)
		candidates = append(candidates, index.Candidate{Id: rec.Id, Score: score, Record: rec})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].Score != candidates[b].Score {
			return candidates[a].Score > candidates[b].Score
		}
		return candidates[a].Record.CreatedAt.Before(candidates[b].Record.CreatedAt)
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	return candidates, nil
}

func (i *memoryIndex) Get(ctx context.Context, id string) (*index.Record, error) {
	i.mtx.RLock()
	defer i.mtx.RUnlock()

	rec, exists := i.records[id]
	if !exists {
		return nil, fault.Newf(fault.NotFound, "record %s not found", id)
	}

	return &rec, nil
}

func (i *memoryIndex) List(ctx context.Context) ([]index.Record, error) {
	i.mtx.RLock()
	defer i.mtx.RUnlock()

	records := make([]index.Record, 0, len(i.records))
	for _, rec := range i.records {
		records = append(records, rec)
	}

	sort.Slice(records, func(a, b int) bool {
		return records[a].CreatedAt.Before(records[b].CreatedAt)
	})

	return records, nil
}

func (i *memoryIndex) Delete(ctx context.Context, id string) error {
	i.mtx.Lock()
	defer i.mtx.Unlock()

	if _, exists := i.records[id]; !exists {
		return fault.Newf(fault.NotFound, "record %s not found", id)
	}

	delete(i.records, id)

	return nil
}

func (i *memoryIndex) Close() error {
	return nil
}

func NewIndex(opts ...index.Option) index.Index {
	options := index.NewOptions(opts...)

	i := &memoryIndex{
		options: options,
		records: map[string]index.Record{},
		mtx:     sync.RWMutex{},
	}

	return i
}
