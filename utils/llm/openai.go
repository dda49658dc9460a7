package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kris-hansen/recipeforge/utils/config"
	"github.com/kris-hansen/recipeforge/utils/retry"
)

// openAIProvider talks to api.openai.com's chat-completions endpoint via the
// go-openai SDK, the one LLM SDK that ships in the teacher's go.mod.
type openAIProvider struct {
	cfg ProviderConfig
}

func newOpenAIProvider(cfg ProviderConfig) Provider {
	return &openAIProvider{cfg: cfg}
}

func (p *openAIProvider) Generate(ctx context.Context, prompt, model string, opts GenerateOptions) (interface{}, error) {
	if p.cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("openai provider: missing openai_api_key in state.config")
	}
	client := openai.NewClient(p.cfg.OpenAIAPIKey)
	return chatComplete(ctx, client, model, prompt, opts)
}

// chatComplete is shared by the openai, azure and ollama providers, which
// differ only in client construction (base URL, API key handling).
func chatComplete(ctx context.Context, client *openai.Client, model, prompt string, opts GenerateOptions) (interface{}, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.OutputType.Kind != OutputText {
		schema := jsonSchemaForOutput(opts.OutputType)
		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("marshaling output schema: %w", err)
		}
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "recipeforge_output",
				Schema: json.RawMessage(raw),
				Strict: true,
			},
		}
	}

	config.DebugLog("[LLM] openai-compatible chat request model=%s prompt_len=%d", model, len(prompt))

	result, err := retry.WithRetry(func() (interface{}, error) {
		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("no choices returned")
		}
		return resp.Choices[0].Message.Content, nil
	}, retry.Is5xxOr429, retry.DefaultConfig)
	if err != nil {
		return nil, err
	}

	content := result.(string)
	config.DebugLog("[LLM] openai-compatible response length=%d", len(content))

	if opts.OutputType.Kind == OutputText {
		return content, nil
	}
	return parseStructuredJSON(content, opts.OutputType)
}
