package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// azureProvider talks to an Azure OpenAI chat-completions deployment via
// the go-openai SDK's Azure config helper.
type azureProvider struct {
	cfg ProviderConfig
}

func newAzureProvider(cfg ProviderConfig) Provider {
	return &azureProvider{cfg: cfg}
}

func (p *azureProvider) Generate(ctx context.Context, prompt, model string, opts GenerateOptions) (interface{}, error) {
	if p.cfg.AzureOpenAIBaseURL == "" || p.cfg.AzureOpenAIAPIKey == "" {
		return nil, fmt.Errorf("azure provider: missing azure_openai_base_url/azure_openai_api_key in state.config")
	}

	deployment := p.cfg.AzureOpenAIDeploymentName
	if name, dep, ok := strings.Cut(model, "/"); ok {
		model, deployment = name, dep
	}
	if deployment == "" {
		deployment = model
	}

	clientConfig := openai.DefaultAzureConfig(p.cfg.AzureOpenAIAPIKey, p.cfg.AzureOpenAIBaseURL)
	if p.cfg.AzureOpenAIAPIVersion != "" {
		clientConfig.APIVersion = p.cfg.AzureOpenAIAPIVersion
	}
	clientConfig.AzureModelMapperFunc = func(m string) string {
		return deployment
	}

	client := openai.NewClientWithConfig(clientConfig)
	return chatComplete(ctx, client, model, prompt, opts)
}
