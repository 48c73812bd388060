package google

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/w-h-a/semcache/embedder"
	"github.com/w-h-a/semcache/fault"
	"google.golang.org/api/googleapi"
	genaiopt "google.golang.org/api/option"
)

type googleEmbedder struct {
	options embedder.Options
	client  *genai.Client
}

func (e *googleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(strings.TrimSpace(text)) == 0 {
		return nil, fault.New(fault.InvalidInput, "text is empty")
	}

	model := e.client.EmbeddingModel(e.options.Model)
	rsp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classify(err)
	}

	if rsp == nil || rsp.Embedding == nil {
		return nil, fault.New(fault.ProviderContractViolation, "no embedding from Google")
	}

	vec := rsp.Embedding.Values

	if err := embedder.Validate(vec, e.options.Dimensions); err != nil {
		return nil, err
	}

	return vec, nil
}

func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403, 429:
			return fault.Wrap(fault.ProviderRejected, "Google rejected the request", err)
		}
	}
	return fault.Wrap(fault.ProviderUnavailable, "Google is unreachable", err)
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	if len(options.Model) == 0 {
		options.Model = "text-embedding-004"
	}

	e := &googleEmbedder{
		options: options,
	}

	client, err := genai.NewClient(
		options.Context,
		genaiopt.WithAPIKey(options.ApiKey),
	)
	if err != nil {
		panic(err)
	}

	e.client = client

	return e
}
