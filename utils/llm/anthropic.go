package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kris-hansen/recipeforge/utils/config"
	"github.com/kris-hansen/recipeforge/utils/retry"
)

// anthropicProvider hand-rolls the Messages API over net/http, grounded on
// the teacher's utils/models/anthropic.go — no Anthropic Go SDK appears
// anywhere in the retrieval pack, so the teacher's raw-HTTP approach is the
// one this engine carries forward, generalized to the structured-output
// contract §4.C12 requires.
type anthropicProvider struct {
	cfg ProviderConfig
}

func newAnthropicProvider(cfg ProviderConfig) Provider {
	return &anthropicProvider{cfg: cfg}
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *anthropicProvider) Generate(ctx context.Context, prompt, model string, opts GenerateOptions) (interface{}, error) {
	if p.cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("anthropic provider: missing anthropic_api_key in state.config")
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	reqBody := anthropicRequest{
		Model: model,
		Messages: []anthropicMessage{
			{Role: "user", Content: []anthropicContent{{Type: "text", Text: prompt}}},
		},
		MaxTokens: maxTokens,
	}
	if opts.OutputType.Kind != OutputText {
		schema := jsonSchemaForOutput(opts.OutputType)
		schemaJSON, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("marshaling output schema: %w", err)
		}
		reqBody.System = "Respond with ONLY a single JSON value matching this JSON schema, no prose: " + string(schemaJSON)
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling anthropic request: %w", err)
	}

	config.DebugLog("[LLM] anthropic request model=%s prompt_len=%d", model, len(prompt))

	result, err := retry.WithRetry(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", "https://api.anthropic.com/v1/messages", bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", p.cfg.AnthropicAPIKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		httpClient := &http.Client{}
		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("anthropic API request failed with status 429: %s", string(body))
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("anthropic API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var parsed anthropicResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("unmarshaling anthropic response: %w", err)
		}
		if parsed.Error != nil {
			return nil, fmt.Errorf("anthropic API error: %s", parsed.Error.Message)
		}
		if len(parsed.Content) == 0 {
			return nil, fmt.Errorf("no response content returned from anthropic")
		}
		return parsed.Content[0].Text, nil
	}, retry.Is5xxOr429, retry.DefaultConfig)
	if err != nil {
		return nil, err
	}

	text := result.(string)
	config.DebugLog("[LLM] anthropic response length=%d", len(text))

	if opts.OutputType.Kind == OutputText {
		return text, nil
	}
	return parseStructuredJSON(text, opts.OutputType)
}
