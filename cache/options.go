package cache

import (
	"context"

	"github.com/w-h-a/semcache/embedder"
	"github.com/w-h-a/semcache/generator"
	"github.com/w-h-a/semcache/index"
)

type Option func(*Options)

type Options struct {
	Embedder  embedder.Embedder
	Index     index.Index
	Generator generator.Generator
	Threshold float64
	TopK      int
	Context   context.Context
}

func WithEmbedder(embedder embedder.Embedder) Option {
	return func(o *Options) {
		o.Embedder = embedder
	}
}

func WithIndex(index index.Index) Option {
	return func(o *Options) {
		o.Index = index
	}
}

func WithGenerator(generator generator.Generator) Option {
	return func(o *Options) {
		o.Generator = generator
	}
}

func WithThreshold(threshold float64) Option {
	return func(o *Options) {
		o.Threshold = threshold
	}
}

func WithTopK(topK int) Option {
	return func(o *Options) {
		o.TopK = topK
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Threshold: 0.6, // any candidate at or above this is the same semantic cluster
		TopK:      5,
		Context:   context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
