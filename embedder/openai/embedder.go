package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/w-h-a/semcache/embedder"
	"github.com/w-h-a/semcache/fault"
)

var embeddingDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

type openAIEmbedder struct {
	options embedder.Options
	client  *openai.Client
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(strings.TrimSpace(text)) == 0 {
		return nil, fault.New(fault.InvalidInput, "text is empty")
	}

	rsp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.options.Model),
	})
	if err != nil {
		return nil, classify(err)
	}

	if len(rsp.Data) == 0 {
		return nil, fault.New(fault.ProviderContractViolation, "no embedding from OpenAI")
	}

	vec := rsp.Data[0].Embedding

	if err := embedder.Validate(vec, e.options.Dimensions); err != nil {
		return nil, err
	}

	return vec, nil
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403, 429:
			return fault.Wrap(fault.ProviderRejected, "OpenAI rejected the request", err)
		}
	}
	return fault.Wrap(fault.ProviderUnavailable, "OpenAI is unreachable", err)
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	if len(options.Model) == 0 {
		options.Model = "text-embedding-3-small"
	}

	if options.Dimensions == 0 {
		options.Dimensions = embeddingDimensions[options.Model]
	}

	e := &openAIEmbedder{
		options: options,
	}

	client := openai.NewClient(options.ApiKey)

	e.client = client

	return e
}
