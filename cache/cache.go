package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/semcache/fault"
	"github.com/w-h-a/semcache/index"
)

type Service struct {
	options Options
}

// Process embeds the question, looks for a semantically similar stored
// question, and either returns the cached answers or generates and
// stores a new one. The cache write on a miss is best effort: a failed
// write never blocks returning the generated answer.
func (s *Service) Process(ctx context.Context, question string, source string, text string) (*Result, error) {
	if len(strings.TrimSpace(question)) == 0 {
		return nil, fault.New(fault.InvalidInput, "question is required")
	}

	vec, err := s.options.Embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	candidates, err := s.options.Index.Search(ctx, vec, s.options.TopK)
	if err != nil {
		return nil, err
	}

	hits := make([]index.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Score >= s.options.Threshold {
			hits = append(hits, candidate)
		}
	}

	if len(hits) > 0 {
		return s.hit(hits), nil
	}

	return s.miss(ctx, question, source, text, vec)
}

func (s *Service) Get(ctx context.Context, id string) (*index.Record, error) {
	if len(strings.TrimSpace(id)) == 0 {
		return nil, fault.New(fault.InvalidInput, "id is required")
	}
	return s.options.Index.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]index.Record, error) {
	return s.options.Index.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if len(strings.TrimSpace(id)) == 0 {
		return fault.New(fault.InvalidInput, "id is required")
	}
	return s.options.Index.Delete(ctx, id)
}

func (s *Service) Close() error {
	return s.options.Index.Close()
}

func (s *Service) hit(hits []index.Candidate) *Result {
	// highest score first; ties go to the oldest record
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Record.CreatedAt.Before(hits[b].Record.CreatedAt)
	})

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		matches = append(matches, Match{
			Id:         hit.Id,
			Similarity: hit.Score,
			Question:   hit.Record.Question,
			Answer:     hit.Record.Answer,
			Source:     hit.Record.Source,
			Extra:      hit.Record.Extra,
			CreatedAt:  hit.Record.CreatedAt,
		})
	}

	return &Result{
		Success:      true,
		Operation:    OperationFoundSimilar,
		Message:      fmt.Sprintf("found %d similar question(s)", len(matches)),
		Answer:       matches[0].Answer,
		SimilarItems: matches,
	}
}

func (s *Service) miss(ctx context.Context, question string, source string, text string, vec []float32) (*Result, error) {
	answer, err := s.options.Generator.Generate(ctx, buildPrompt(question, text))
	if err != nil {
		return nil, err
	}

	rec := index.Record{
		Id:        uuid.New().String(),
		Question:  question,
		Answer:    answer,
		Source:    source,
		Embedding: vec,
		CreatedAt: time.Now().UTC(),
	}

	saveErr := s.options.Index.Save(ctx, rec)
	if fault.Is(saveErr, fault.DuplicateKey) {
		rec.Id = uuid.New().String()
		saveErr = s.options.Index.Save(ctx, rec)
	}

	result := &Result{
		Success:      true,
		Operation:    OperationSavedNew,
		Answer:       answer,
		SimilarItems: []Match{},
	}

	if saveErr != nil {
		slog.WarnContext(ctx, "failed to persist new answer", "error", saveErr, "id", rec.Id)
		result.Message = "generated a new answer; cache write failed"
		result.Warning = fault.Wrap(fault.PersistFailed, "cache write failed", saveErr).Error()
		return result, nil
	}

	result.Message = fmt.Sprintf("stored new answer (key: %s)", rec.Id)

	return result, nil
}

func buildPrompt(question string, text string) string {
	if len(strings.TrimSpace(text)) == 0 {
		return question
	}

	var sb strings.Builder
	sb.WriteString(question)
	sb.WriteString("\n\nContext:\n")
	sb.WriteString(text)
	return sb.String()
}

func New(opts ...Option) *Service {
	options := NewOptions(opts...)

	if options.Embedder == nil || options.Index == nil || options.Generator == nil {
		panic("missing embedder, index, or generator for cache service")
	}

	return &Service{
		options: options,
	}
}
