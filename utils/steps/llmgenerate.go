package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/kris-hansen/recipeforge/utils/llm"
	"github.com/kris-hansen/recipeforge/utils/mcpclient"
	"github.com/kris-hansen/recipeforge/utils/registry"
	"github.com/kris-hansen/recipeforge/utils/state"
)

func init() {
	registry.Register("llm_generate", newLLMGenerateStep)
}

type llmGenerateConfig struct {
	Prompt             string            `json:"prompt"`
	Model              string            `json:"model"`
	MaxTokens          interface{}       `json:"max_tokens"`
	MCPServers         []json.RawMessage `json:"mcp_servers"`
	OpenAIBuiltinTools []llm.BuiltinTool `json:"openai_builtin_tools"`
	OutputFormat       json.RawMessage   `json:"output_format"`
	OutputKey          string            `json:"output_key"`
}

type llmGenerateStep struct {
	logger *log.Logger
	cfg    llmGenerateConfig
}

func newLLMGenerateStep(logger *log.Logger, raw json.RawMessage) (registry.Step, error) {
	var cfg llmGenerateConfig
	if err := decodeConfig("llm_generate", raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Prompt == "" {
		return nil, &ConfigError{StepType: "llm_generate", Message: "prompt is required"}
	}
	if cfg.OutputKey == "" {
		return nil, &ConfigError{StepType: "llm_generate", Message: "output_key is required"}
	}
	return &llmGenerateStep{logger: logger, cfg: cfg}, nil
}

// Run implements spec §4.C12 end to end: render every templated field,
// parse max_tokens, build the output-type descriptor from output_format,
// build MCP handles, invoke the LLM capability, and store its
// already-normalized return value under the rendered output_key. The llm
// package's Generate already performs the "normalize" step (§4.C12 step 7)
// internally per OutputType, so this step only has to pass the descriptor
// through and store the result.
func (s *llmGenerateStep) Run(ctx context.Context, st *state.State) error {
	vars := st.Snapshot()

	prompt, err := renderTemplate(s.cfg.Prompt, vars)
	if err != nil {
		return err
	}

	modelID, err := renderTemplate(s.cfg.Model, vars)
	if err != nil {
		return err
	}
	if modelID == "" {
		defaultModel, _ := st.ConfigGet("default_model")
		if dm, ok := defaultModel.(string); ok && dm != "" {
			modelID = dm
		} else {
			modelID = "openai/gpt-4o"
		}
	}

	outputKey, err := renderTemplate(s.cfg.OutputKey, vars)
	if err != nil {
		return err
	}

	maxTokens, err := parseMaxTokens(s.cfg.MaxTokens)
	if err != nil {
		return &ConfigError{StepType: "llm_generate", Message: err.Error()}
	}

	outputType, err := buildOutputType(s.cfg.OutputFormat)
	if err != nil {
		return &ConfigError{StepType: "llm_generate", Message: err.Error()}
	}

	handles, err := s.buildMCPHandles(ctx, vars)
	if err != nil {
		return err
	}
	defer closeHandles(handles)

	providerCfg := configFromState(st)
	client := llm.NewClient(providerCfg)

	result, err := client.Generate(ctx, prompt, llm.GenerateOptions{
		ModelID:      modelID,
		MaxTokens:    maxTokens,
		OutputType:   outputType,
		MCPServers:   handles,
		BuiltinTools: s.cfg.OpenAIBuiltinTools,
		Config:       providerCfg,
	})
	if err != nil {
		return err
	}

	st.Set(outputKey, result)
	return nil
}

func (s *llmGenerateStep) buildMCPHandles(ctx context.Context, vars map[string]interface{}) ([]*mcpclient.Handle, error) {
	if len(s.cfg.MCPServers) == 0 {
		return nil, nil
	}

	handles := make([]*mcpclient.Handle, 0, len(s.cfg.MCPServers))
	for i, serverRaw := range s.cfg.MCPServers {
		cfg, err := resolveMCPServerConfig(serverRaw, vars)
		if err != nil {
			closeHandles(handles)
			return nil, &ConfigError{StepType: "llm_generate", Message: fmt.Sprintf("mcp_servers[%d]: %v", i, err)}
		}

		name := fmt.Sprintf("mcp_servers[%d]", i)
		handle, err := mcpclient.New(ctx, name, cfg)
		if err != nil {
			closeHandles(handles)
			return nil, err
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

func closeHandles(handles []*mcpclient.Handle) {
	for _, h := range handles {
		_ = h.Close()
	}
}

// parseMaxTokens accepts the field absent, as a JSON number, or as a
// numeric string (spec §4.C12: "optional, may be a numeric string").
func parseMaxTokens(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		return int(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("max_tokens %q is not a valid integer", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("max_tokens must be a number or numeric string, got %T", raw)
	}
}

// buildOutputType implements output_format's four shapes (spec §4.C12):
// the literal "text", the literal "files", a single schema mapping (object
// output), or a one-element list containing a schema mapping (list
// output).
func buildOutputType(raw json.RawMessage) (llm.OutputType, error) {
	if len(raw) == 0 {
		return llm.OutputType{Kind: llm.OutputText}, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		switch asString {
		case "text", "":
			return llm.OutputType{Kind: llm.OutputText}, nil
		case "files":
			return llm.OutputType{Kind: llm.OutputFiles}, nil
		default:
			return llm.OutputType{}, fmt.Errorf("output_format string must be \"text\" or \"files\", got %q", asString)
		}
	}

	var asList []map[string]interface{}
	if err := json.Unmarshal(raw, &asList); err == nil {
		if len(asList) != 1 {
			return llm.OutputType{}, fmt.Errorf("output_format list form must contain exactly one schema mapping, got %d", len(asList))
		}
		return llm.OutputType{Kind: llm.OutputList, Schema: asList[0]}, nil
	}

	var asObject map[string]interface{}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return llm.OutputType{Kind: llm.OutputObject, Schema: asObject}, nil
	}

	return llm.OutputType{}, fmt.Errorf("output_format must be \"text\", \"files\", a schema mapping, or a one-element list of a schema mapping")
}

// configFromState reads the provider credentials/endpoints the LLM
// capability needs out of state.config (spec §4.C6, never from the
// ambient process environment at this layer).
func configFromState(st *state.State) llm.ProviderConfig {
	get := func(key string) string {
		v, _ := st.ConfigGet(key)
		s, _ := v.(string)
		return s
	}
	getBool := func(key string) bool {
		v, _ := st.ConfigGet(key)
		b, _ := v.(bool)
		return b
	}

	return llm.ProviderConfig{
		OpenAIAPIKey:              get("openai_api_key"),
		AnthropicAPIKey:           get("anthropic_api_key"),
		OllamaBaseURL:             get("ollama_base_url"),
		AzureOpenAIBaseURL:        get("azure_openai_base_url"),
		AzureOpenAIAPIVersion:     get("azure_openai_api_version"),
		AzureOpenAIAPIKey:         get("azure_openai_api_key"),
		AzureOpenAIDeploymentName: get("azure_openai_deployment_name"),
		AzureUseManagedIdentity:   getBool("azure_use_managed_identity"),
		AzureClientID:             get("azure_client_id"),
		DefaultModel:              get("default_model"),
	}
}
