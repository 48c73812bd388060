package index

import "context"

type Index interface {
	Save(ctx context.Context, rec Record) error
	Search(ctx context.Context, vector []float32, topK int) ([]Candidate, error)
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
