package steps

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/kris-hansen/recipeforge/utils/executor"
	"github.com/kris-hansen/recipeforge/utils/recipe"
	"github.com/kris-hansen/recipeforge/utils/registry"
	"github.com/kris-hansen/recipeforge/utils/state"
)

func init() {
	registry.Register("execute_recipe", newExecuteRecipeStep)
}

type executeRecipeConfig struct {
	RecipePath       string                 `json:"recipe_path"`
	ContextOverrides map[string]interface{} `json:"context_overrides"`
}

type executeRecipeStep struct {
	logger *log.Logger
	cfg    executeRecipeConfig
}

func newExecuteRecipeStep(logger *log.Logger, raw json.RawMessage) (registry.Step, error) {
	var cfg executeRecipeConfig
	if err := decodeConfig("execute_recipe", raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.RecipePath == "" {
		return nil, &ConfigError{StepType: "execute_recipe", Message: "recipe_path is required"}
	}
	return &executeRecipeStep{logger: logger, cfg: cfg}, nil
}

// Run implements spec §4.C11: the sub-recipe shares the parent state (no
// clone) so recipes compose by producing named artifacts the caller
// consumes in its next step — Loop is where isolation is the point, this
// step is where composition is.
func (s *executeRecipeStep) Run(ctx context.Context, st *state.State) error {
	vars := st.Snapshot()

	path, err := renderTemplate(s.cfg.RecipePath, vars)
	if err != nil {
		return err
	}

	if len(s.cfg.ContextOverrides) > 0 {
		overrides, err := renderOverrides(s.cfg.ContextOverrides, vars)
		if err != nil {
			return err
		}
		st.MergeFrom(overrides)
	}

	r, err := recipe.Load(path)
	if err != nil {
		return err
	}

	return executor.New(s.logger).Run(ctx, r, st)
}

// renderOverrides implements the context_overrides rendering rule: every
// string leaf is template-rendered, then sniffed for a JSON object/array
// literal — if it parses as one, the parsed structure is stored instead of
// the raw text. Non-string leaves pass through untouched.
func renderOverrides(overrides map[string]interface{}, vars map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(overrides))
	for k, v := range overrides {
		rendered, err := renderOverrideLeaf(v, vars)
		if err != nil {
			return nil, err
		}
		out[k] = rendered
	}
	return out, nil
}

func renderOverrideLeaf(v interface{}, vars map[string]interface{}) (interface{}, error) {
	switch t := v.(type) {
	case string:
		rendered, err := renderTemplate(t, vars)
		if err != nil {
			return nil, err
		}
		return sniffJSONLiteral(rendered), nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			r, err := renderOverrideLeaf(item, vars)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			r, err := renderOverrideLeaf(item, vars)
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

// sniffJSONLiteral returns the decoded value if s parses as a JSON object
// or array, otherwise s unchanged. A bare JSON string/number/bool is never
// reinterpreted here — only the object/array forms the spec names.
func sniffJSONLiteral(s string) interface{} {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) == 0 {
		return s
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return s
	}
	var v interface{}
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return s
	}
	return v
}
