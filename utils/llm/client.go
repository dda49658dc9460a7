// Package llm implements the LLM Capability (spec §4.C6): a single async
// Generate façade over multiple providers (openai, azure, anthropic,
// ollama, openai_responses, azure_responses), returning only the structured
// content the caller asked for — never the raw transport envelope.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/kris-hansen/recipeforge/utils/mcpclient"
)

// FileSpec is both an LLM structured-output shape and the payload the
// WriteFiles step consumes (spec §3).
type FileSpec struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// OutputKind discriminates the structured-output shapes a GenerateOptions
// can request (spec §3, "LLM structured output type").
type OutputKind int

const (
	// OutputText requests plain text.
	OutputText OutputKind = iota
	// OutputFiles requests a list of FileSpec.
	OutputFiles
	// OutputObject requests a single object matching Schema.
	OutputObject
	// OutputList requests a list of items, each matching Schema; internally
	// transported as {items: [...]} and unwrapped by the caller.
	OutputList
)

// OutputType describes what shape Generate should return.
type OutputType struct {
	Kind   OutputKind
	Schema map[string]interface{} // only meaningful for OutputObject/OutputList
}

// BuiltinTool is an OpenAI Responses-API built-in tool descriptor. The only
// accepted type in the current contract is "web_search_preview" (spec
// §4.C6).
type BuiltinTool struct {
	Type string `json:"type"`
}

// GenerateOptions configures a single Generate call.
type GenerateOptions struct {
	ModelID      string
	MaxTokens    int
	OutputType   OutputType
	MCPServers   []*mcpclient.Handle
	BuiltinTools []BuiltinTool

	// Config supplies provider credentials and endpoints read from
	// state.config (spec §4.C6, "Configuration access" — never from ambient
	// process environment).
	Config ProviderConfig
}

// ProviderConfig is the subset of state.config a provider needs, passed in
// explicitly rather than read from the environment.
type ProviderConfig struct {
	OpenAIAPIKey string

	AnthropicAPIKey string

	OllamaBaseURL string

	AzureOpenAIBaseURL       string
	AzureOpenAIAPIVersion    string
	AzureOpenAIAPIKey        string
	AzureOpenAIDeploymentName string
	AzureUseManagedIdentity  bool
	AzureClientID            string

	DefaultModel string
}

// Client is the façade steps and the engine depend on.
type Client interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (interface{}, error)
}

// Provider is one concrete backend. model is the model id with the
// "provider/" prefix stripped; any "/deployment" suffix is left in place
// for the provider to interpret.
type Provider interface {
	Generate(ctx context.Context, prompt, model string, opts GenerateOptions) (interface{}, error)
}

// LLMError wraps a network/API/timeout failure (spec §7).
type LLMError struct {
	Provider string
	Model    string
	Cause    error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm: provider %s model %s: %v", e.Provider, e.Model, e.Cause)
}

func (e *LLMError) Unwrap() error { return e.Cause }

// LLMSchemaError wraps a structured-output validation failure (spec §7).
type LLMSchemaError struct {
	Payload interface{}
	Schema  map[string]interface{}
	Cause   error
}

func (e *LLMSchemaError) Error() string {
	return fmt.Sprintf("llm: structured output failed schema validation: %v", e.Cause)
}

func (e *LLMSchemaError) Unwrap() error { return e.Cause }

// ToolValidationError is raised when a built-in tool is requested against a
// provider that cannot serve it, or an unsupported tool type is requested
// (spec §7).
type ToolValidationError struct {
	Provider string
	ToolType string
}

func (e *ToolValidationError) Error() string {
	return fmt.Sprintf("llm: built-in tool %q is not valid for provider %q", e.ToolType, e.Provider)
}

// client is the default Client implementation: it parses model_id, looks up
// the named provider, validates built-in tools against it, and delegates.
type client struct {
	providers map[string]Provider
}

// NewClient constructs the default Client, wiring one Provider per name
// recognized by spec §4.C6.
func NewClient(cfg ProviderConfig) Client {
	return &client{
		providers: map[string]Provider{
			"openai":           newOpenAIProvider(cfg),
			"azure":            newAzureProvider(cfg),
			"anthropic":        newAnthropicProvider(cfg),
			"ollama":           newOllamaProvider(cfg),
			"openai_responses": newResponsesProvider(cfg, false),
			"azure_responses":  newResponsesProvider(cfg, true),
		},
	}
}

// ParseModelID splits "provider/model" or "provider/model/deployment" into
// its provider tag and the remainder, which providers interpret themselves
// (Azure treats a third segment as an explicit deployment name override).
func ParseModelID(modelID string) (provider, rest string, err error) {
	parts := strings.SplitN(modelID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("llm: model id %q is not of the form provider/model", modelID)
	}
	return parts[0], parts[1], nil
}

func (c *client) Generate(ctx context.Context, prompt string, opts GenerateOptions) (interface{}, error) {
	providerName, rest, err := ParseModelID(opts.ModelID)
	if err != nil {
		return nil, err
	}

	provider, ok := c.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("llm: unrecognized provider %q in model id %q", providerName, opts.ModelID)
	}

	if len(opts.BuiltinTools) > 0 && providerName != "openai_responses" && providerName != "azure_responses" {
		return nil, &ToolValidationError{Provider: providerName, ToolType: opts.BuiltinTools[0].Type}
	}
	for _, t := range opts.BuiltinTools {
		if t.Type != "web_search_preview" {
			return nil, &ToolValidationError{Provider: providerName, ToolType: t.Type}
		}
	}

	result, err := provider.Generate(ctx, prompt, rest, opts)
	if err != nil {
		if _, ok := err.(*LLMError); ok {
			return nil, err
		}
		if _, ok := err.(*LLMSchemaError); ok {
			return nil, err
		}
		return nil, &LLMError{Provider: providerName, Model: rest, Cause: err}
	}
	return result, nil
}
