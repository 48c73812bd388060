package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/w-h-a/semcache/cache"
	"github.com/w-h-a/semcache/embedder"
	googleembedder "github.com/w-h-a/semcache/embedder/google"
	openaiembedder "github.com/w-h-a/semcache/embedder/openai"
	"github.com/w-h-a/semcache/generator"
	anthropicgenerator "github.com/w-h-a/semcache/generator/anthropic"
	googlegenerator "github.com/w-h-a/semcache/generator/google"
	openaigenerator "github.com/w-h-a/semcache/generator/openai"
	staticgenerator "github.com/w-h-a/semcache/generator/static"
	"github.com/w-h-a/semcache/index"
	memoryindex "github.com/w-h-a/semcache/index/memory"
	postgresindex "github.com/w-h-a/semcache/index/postgres"
	qdrantindex "github.com/w-h-a/semcache/index/qdrant"
	redisindex "github.com/w-h-a/semcache/index/redis"
	"github.com/w-h-a/semcache/server"
	httpserver "github.com/w-h-a/semcache/server/http"
)

var (
	cfg struct {
		// Server config
		Address string `help:"Address for the HTTP server" default:":8080" env:"SEMCACHE_ADDRESS"`

		// Index config
		Index         string `help:"Vector index backend (memory, redis, postgres, qdrant)" default:"memory" env:"SEMCACHE_INDEX"`
		IndexLocation string `help:"Address of the vector store" default:"localhost:6379" env:"SEMCACHE_INDEX_LOCATION"`
		Collection    string `help:"Index/collection name" default:"semcache" env:"SEMCACHE_COLLECTION"`
		Dimensions    int    `help:"Embedding dimensions" default:"1536" env:"SEMCACHE_DIMENSIONS"`
		StoreKey      string `help:"API key or password for the vector store" default:"" env:"SEMCACHE_STORE_KEY"`

		// Cache config
		Threshold float64 `help:"Similarity threshold for a cache hit" default:"0.6" env:"SEMCACHE_THRESHOLD"`
		TopK      int     `help:"Maximum candidates per search" default:"5" env:"SEMCACHE_TOP_K"`

		// Embedder config
		EmbedderProvider string `help:"Embedding provider (openai, google)" default:"openai" env:"SEMCACHE_EMBEDDER"`
		EmbeddingModel   string `help:"Model identifier for vector embeddings" default:"text-embedding-3-small" env:"SEMCACHE_EMBEDDING_MODEL"`

		// Generator config
		GeneratorProvider string `help:"Answer provider (openai, anthropic, google, static)" default:"static" env:"SEMCACHE_GENERATOR"`
		Model             string `help:"Model identifier for answer generation" default:"gpt-4o-mini" env:"SEMCACHE_MODEL"`

		// Provider keys
		OpenAIKey    string `help:"API key for OpenAI" default:"" env:"OPENAI_API_KEY"`
		AnthropicKey string `help:"API key for Anthropic" default:"" env:"ANTHROPIC_API_KEY"`
		GoogleKey    string `help:"API key for Google" default:"" env:"GOOGLE_API_KEY"`
	}
)

func main() {
	// Parse inputs
	_ = godotenv.Load()
	_ = kong.Parse(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create embedder
	var emb embedder.Embedder
	switch cfg.EmbedderProvider {
	case "google":
		emb = googleembedder.NewEmbedder(
			embedder.WithApiKey(cfg.GoogleKey),
			embedder.WithModel(cfg.EmbeddingModel),
			embedder.WithDimensions(cfg.Dimensions),
		)
	default:
		emb = openaiembedder.NewEmbedder(
			embedder.WithApiKey(cfg.OpenAIKey),
			embedder.WithModel(cfg.EmbeddingModel),
			embedder.WithDimensions(cfg.Dimensions),
		)
	}

	// Create index
	indexOpts := []index.Option{
		index.WithLocation(cfg.IndexLocation),
		index.WithCollection(cfg.Collection),
		index.WithVectorSize(cfg.Dimensions),
		index.WithApiKey(cfg.StoreKey),
	}

	var idx index.Index
	switch cfg.Index {
	case "redis":
		idx = redisindex.NewIndex(indexOpts...)
	case "postgres":
		idx = postgresindex.NewIndex(indexOpts...)
	case "qdrant":
		idx = qdrantindex.NewIndex(indexOpts...)
	default:
		idx = memoryindex.NewIndex(indexOpts...)
	}

	// Create generator
	var gen generator.Generator
	switch cfg.GeneratorProvider {
	case "openai":
		gen = openaigenerator.NewGenerator(
			generator.WithApiKey(cfg.OpenAIKey),
			generator.WithModel(cfg.Model),
		)
	case "anthropic":
		gen = anthropicgenerator.NewGenerator(
			generator.WithApiKey(cfg.AnthropicKey),
			generator.WithModel(cfg.Model),
		)
	case "google":
		gen = googlegenerator.NewGenerator(
			generator.WithApiKey(cfg.GoogleKey),
			generator.WithModel(cfg.Model),
		)
	default:
		gen = staticgenerator.NewGenerator()
	}

	// Create cache service
	c := cache.New(
		cache.WithEmbedder(emb),
		cache.WithIndex(idx),
		cache.WithGenerator(gen),
		cache.WithThreshold(cfg.Threshold),
		cache.WithTopK(cfg.TopK),
	)
	defer c.Close()

	// Serve
	srv := httpserver.NewServer(
		c,
		server.WithAddress(cfg.Address),
	)

	log.Printf("semcache listening on %s (index=%s, threshold=%.2f, topK=%d)", cfg.Address, cfg.Index, cfg.Threshold, cfg.TopK)

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
