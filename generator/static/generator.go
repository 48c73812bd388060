package static

import (
	"context"

	"github.com/w-h-a/semcache/generator"
)

// staticGenerator returns a canned answer. Useful for demos, tests,
// and deployments where no model provider is wired up yet.
type staticGenerator struct {
	options generator.Options
}

func (g *staticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if len(g.options.PromptPrefix) > 0 {
		return g.options.PromptPrefix + "\n" + prompt, nil
	}
	return "Placeholder answer for: " + prompt, nil
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	g := &staticGenerator{
		options: options,
	}

	return g
}
