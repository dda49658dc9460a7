package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// ollamaProvider targets the OpenAI-compatible endpoint Ollama exposes at
// {ollama_base_url}/v1 (spec §4.C6), via the go-openai SDK with a
// redirected base URL. This deliberately departs from the teacher's own
// Ollama provider, which speaks the native /api/generate endpoint directly:
// the spec pins the wire contract to the OpenAI-compatible surface instead,
// so reusing go-openai here is the faithful reimplementation, not a
// simplification.
type ollamaProvider struct {
	cfg ProviderConfig
}

func newOllamaProvider(cfg ProviderConfig) Provider {
	return &ollamaProvider{cfg: cfg}
}

func (p *ollamaProvider) Generate(ctx context.Context, prompt, model string, opts GenerateOptions) (interface{}, error) {
	base := p.cfg.OllamaBaseURL
	if base == "" {
		base = "http://localhost:11434"
	}

	clientConfig := openai.DefaultConfig("ollama")
	clientConfig.BaseURL = base + "/v1"
	client := openai.NewClientWithConfig(clientConfig)
	return chatComplete(ctx, client, model, prompt, opts)
}
