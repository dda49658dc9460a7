package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/kris-hansen/recipeforge/utils/registry"
	"github.com/kris-hansen/recipeforge/utils/state"
)

func init() {
	registry.Register("set_context", newSetContextStep)
}

type setContextConfig struct {
	Key          string      `json:"key"`
	Value        interface{} `json:"value"`
	IfExists     string      `json:"if_exists"`
	NestedRender bool        `json:"nested_render"`
}

type setContextStep struct {
	logger *log.Logger
	cfg    setContextConfig
}

func newSetContextStep(logger *log.Logger, raw json.RawMessage) (registry.Step, error) {
	var cfg setContextConfig
	if err := decodeConfig("set_context", raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Key == "" {
		return nil, &ConfigError{StepType: "set_context", Message: "key is required"}
	}
	if cfg.IfExists == "" {
		cfg.IfExists = "overwrite"
	}
	if cfg.IfExists != "overwrite" && cfg.IfExists != "merge" {
		return nil, &ConfigError{StepType: "set_context", Message: fmt.Sprintf("if_exists must be overwrite or merge, got %q", cfg.IfExists)}
	}
	return &setContextStep{logger: logger, cfg: cfg}, nil
}

func (s *setContextStep) Run(ctx context.Context, st *state.State) error {
	vars := st.Snapshot()

	value, err := renderDeep(s.cfg.Value, vars)
	if err != nil {
		return err
	}

	if s.cfg.NestedRender {
		if str, ok := value.(string); ok {
			rendered, err := renderTemplate(str, vars)
			if err != nil {
				return err
			}
			value = rendered
		}
	}

	if s.cfg.IfExists == "overwrite" {
		st.Set(s.cfg.Key, value)
		return nil
	}

	existing, ok := st.Get(s.cfg.Key)
	if !ok {
		st.Set(s.cfg.Key, value)
		return nil
	}

	merged, err := mergeValues(existing, value)
	if err != nil {
		return &ConfigError{StepType: "set_context", Message: err.Error()}
	}
	st.Set(s.cfg.Key, merged)
	return nil
}

// mergeValues implements if_exists: merge (spec §4.C13): strings
// concatenate, lists append, mappings shallow-merge. Mismatched types are a
// configuration error.
func mergeValues(existing, incoming interface{}) (interface{}, error) {
	switch e := existing.(type) {
	case string:
		i, ok := incoming.(string)
		if !ok {
			return nil, fmt.Errorf("cannot merge %T into existing string value", incoming)
		}
		return e + i, nil
	case []interface{}:
		i, ok := incoming.([]interface{})
		if !ok {
			return nil, fmt.Errorf("cannot merge %T into existing list value", incoming)
		}
		return append(append([]interface{}{}, e...), i...), nil
	case map[string]interface{}:
		i, ok := incoming.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("cannot merge %T into existing mapping value", incoming)
		}
		out := make(map[string]interface{}, len(e)+len(i))
		for k, v := range e {
			out[k] = v
		}
		for k, v := range i {
			out[k] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("if_exists=merge is not supported for existing value of type %T", existing)
	}
}
