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

// responsesProvider hand-rolls the OpenAI Responses API over net/http,
// grounded on the teacher's ResponsesConfig shape and Moonshot's
// SendPromptWithResponses (utils/models/moonshot.go): build a request map,
// POST it, read back the first output-text item. azure selects Azure's
// Responses endpoint and api-key auth instead of OpenAI's bearer token.
type responsesProvider struct {
	cfg   ProviderConfig
	azure bool
}

func newResponsesProvider(cfg ProviderConfig, azure bool) Provider {
	return &responsesProvider{cfg: cfg, azure: azure}
}

type responsesOutputItem struct {
	Type    string `json:"type"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type responsesEnvelope struct {
	Output []responsesOutputItem `json:"output"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *responsesProvider) endpointAndAuth() (url string, setAuth func(*http.Request), err error) {
	if p.azure {
		if p.cfg.AzureOpenAIBaseURL == "" || p.cfg.AzureOpenAIAPIKey == "" {
			return "", nil, fmt.Errorf("azure_responses provider: missing azure_openai_base_url/azure_openai_api_key in state.config")
		}
		version := p.cfg.AzureOpenAIAPIVersion
		if version == "" {
			version = "2024-08-01-preview"
		}
		url = fmt.Sprintf("%s/openai/responses?api-version=%s", p.cfg.AzureOpenAIBaseURL, version)
		return url, func(req *http.Request) { req.Header.Set("api-key", p.cfg.AzureOpenAIAPIKey) }, nil
	}
	if p.cfg.OpenAIAPIKey == "" {
		return "", nil, fmt.Errorf("openai_responses provider: missing openai_api_key in state.config")
	}
	return "https://api.openai.com/v1/responses", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+p.cfg.OpenAIAPIKey)
	}, nil
}

func (p *responsesProvider) Generate(ctx context.Context, prompt, model string, opts GenerateOptions) (interface{}, error) {
	url, setAuth, err := p.endpointAndAuth()
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"model": model,
		"input": prompt,
	}
	if opts.MaxTokens > 0 {
		body["max_output_tokens"] = opts.MaxTokens
	}
	if len(opts.BuiltinTools) > 0 {
		tools := make([]map[string]interface{}, len(opts.BuiltinTools))
		for i, t := range opts.BuiltinTools {
			tools[i] = map[string]interface{}{"type": t.Type}
		}
		body["tools"] = tools
	}
	if opts.OutputType.Kind != OutputText {
		body["text"] = map[string]interface{}{
			"format": map[string]interface{}{
				"type":   "json_schema",
				"name":   "recipeforge_output",
				"schema": jsonSchemaForOutput(opts.OutputType),
				"strict": true,
			},
		}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling responses request: %w", err)
	}

	config.DebugLog("[LLM] responses request model=%s azure=%v prompt_len=%d", model, p.azure, len(prompt))

	result, err := retry.WithRetry(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		setAuth(req)

		httpClient := &http.Client{}
		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("responses API request failed with status 429: %s", string(respBody))
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("responses API request failed with status %d: %s", resp.StatusCode, string(respBody))
		}

		var envelope responsesEnvelope
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return nil, fmt.Errorf("unmarshaling responses envelope: %w", err)
		}
		if envelope.Error != nil {
			return nil, fmt.Errorf("responses API error: %s", envelope.Error.Message)
		}
		for _, item := range envelope.Output {
			for _, c := range item.Content {
				if c.Text != "" {
					return c.Text, nil
				}
			}
		}
		return "", nil
	}, retry.Is5xxOr429, retry.DefaultConfig)
	if err != nil {
		return nil, err
	}

	text := result.(string)
	config.DebugLog("[LLM] responses response length=%d", len(text))

	if opts.OutputType.Kind == OutputText {
		return text, nil
	}
	return parseStructuredJSON(text, opts.OutputType)
}
