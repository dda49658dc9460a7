// Package steps implements every concrete step type (spec §4.C8-§4.C13) and
// registers each one into utils/registry from its own init(), the way the
// teacher dispatches by step-type tag in dsl.go's processStep.
package steps

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kris-hansen/recipeforge/utils/mcpclient"
	"github.com/kris-hansen/recipeforge/utils/template"
)

// ConfigError reports a malformed step configuration (spec §7, kind:
// ConfigError). Required fields are checked at construction time; values
// that only exist after rendering (a condition, an items path, a files_key,
// max_tokens, ...) are checked in Run and reported with this type too.
type ConfigError struct {
	StepType string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.StepType, e.Message)
}

// renderTemplate is the common "render this config string against state"
// helper every step's Run uses before acting on a field.
func renderTemplate(text string, vars map[string]interface{}) (string, error) {
	return template.Render(text, vars)
}

// decodeConfig unmarshals raw into dst, wrapping any error as a ConfigError
// naming stepType.
func decodeConfig(stepType string, raw json.RawMessage, dst interface{}) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return &ConfigError{StepType: stepType, Message: "invalid config: " + err.Error()}
	}
	return nil
}

// renderDeep template-renders every string leaf of v, recursing into lists
// and mappings; non-string leaves pass through untouched. Shared by
// SetContext's value rendering, MCPCall's argument rendering, the docpack
// outline rendering and resolveMCPServerConfig.
func renderDeep(v interface{}, vars map[string]interface{}) (interface{}, error) {
	switch t := v.(type) {
	case string:
		return renderTemplate(t, vars)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			r, err := renderDeep(item, vars)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			r, err := renderDeep(item, vars)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// resolveMCPServerConfig resolves one mcp_servers/server entry: either an
// inline server config object, or a string of the form "@file:path" naming
// a JSON/YAML config fragment to load via
// mcpclient.LoadMCPServerConfigFile (spec §6 supplement). Shared by the
// mcp_call step's `server` field and llm_generate's `mcp_servers` list.
func resolveMCPServerConfig(raw json.RawMessage, vars map[string]interface{}) (mcpclient.Config, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		rendered, err := renderTemplate(asString, vars)
		if err != nil {
			return mcpclient.Config{}, err
		}
		path, ok := strings.CutPrefix(rendered, "@file:")
		if !ok {
			return mcpclient.Config{}, fmt.Errorf("mcp server config string must be of the form \"@file:path\", got %q", rendered)
		}
		return mcpclient.LoadMCPServerConfigFile(path)
	}

	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return mcpclient.Config{}, fmt.Errorf("mcp server config must be an object or an \"@file:path\" string: %w", err)
	}
	renderedVal, err := renderDeep(asMap, vars)
	if err != nil {
		return mcpclient.Config{}, err
	}
	renderedMap, _ := renderedVal.(map[string]interface{})
	encoded, err := json.Marshal(renderedMap)
	if err != nil {
		return mcpclient.Config{}, fmt.Errorf("mcp server config: re-encoding: %w", err)
	}
	var cfg mcpclient.Config
	if err := json.Unmarshal(encoded, &cfg); err != nil {
		return mcpclient.Config{}, fmt.Errorf("mcp server config: %w", err)
	}
	return cfg, nil
}
