package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/kris-hansen/recipeforge/utils/executor"
	"github.com/kris-hansen/recipeforge/utils/recipe"
	"github.com/kris-hansen/recipeforge/utils/registry"
	"github.com/kris-hansen/recipeforge/utils/state"
	"github.com/kris-hansen/recipeforge/utils/template"
)

func init() {
	registry.Register("conditional", newConditionalStep)
}

type subRecipe struct {
	Steps []recipe.Step `json:"steps"`
}

type conditionalConfig struct {
	Condition string     `json:"condition"`
	IfTrue    *subRecipe `json:"if_true"`
	IfFalse   *subRecipe `json:"if_false"`
}

type conditionalStep struct {
	logger *log.Logger
	cfg    conditionalConfig
}

func newConditionalStep(logger *log.Logger, raw json.RawMessage) (registry.Step, error) {
	var cfg conditionalConfig
	if err := decodeConfig("conditional", raw, &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Condition) == "" {
		return nil, &ConfigError{StepType: "conditional", Message: "condition is required"}
	}
	return &conditionalStep{logger: logger, cfg: cfg}, nil
}

// conditionFuncs is the fixed predicate/logical-form table the mini-language
// exposes (spec §4.C8): and/or/not plus the three filesystem predicates.
func conditionFuncs() map[string]func([]interface{}) (interface{}, error) {
	toBool := func(v interface{}) bool { return template.Truthy(v) }
	toString := func(v interface{}) string { return template.ToDisplayString(v) }

	return map[string]func([]interface{}) (interface{}, error){
		"and": func(args []interface{}) (interface{}, error) {
			for _, a := range args {
				if !toBool(a) {
					return false, nil
				}
			}
			return true, nil
		},
		"or": func(args []interface{}) (interface{}, error) {
			for _, a := range args {
				if toBool(a) {
					return true, nil
				}
			}
			return false, nil
		},
		"not": func(args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("not() takes exactly one argument")
			}
			return !toBool(args[0]), nil
		},
		"file_exists": func(args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("file_exists() takes exactly one argument")
			}
			_, err := os.Stat(toString(args[0]))
			return err == nil, nil
		},
		"all_files_exist": func(args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("all_files_exist() takes exactly one argument (a list)")
			}
			list, ok := args[0].([]interface{})
			if !ok {
				return nil, fmt.Errorf("all_files_exist() argument must be a list")
			}
			for _, p := range list {
				if _, err := os.Stat(toString(p)); err != nil {
					return false, nil
				}
			}
			return true, nil
		},
		"file_is_newer": func(args []interface{}) (interface{}, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("file_is_newer() takes exactly two arguments")
			}
			a, errA := os.Stat(toString(args[0]))
			b, errB := os.Stat(toString(args[1]))
			if errA != nil || errB != nil {
				return false, nil
			}
			return a.ModTime().After(b.ModTime()), nil
		},
	}
}

func (s *conditionalStep) Run(ctx context.Context, st *state.State) error {
	rendered, err := renderTemplate(s.cfg.Condition, st.Snapshot())
	if err != nil {
		return err
	}

	truthy, err := evalCondition(rendered)
	if err != nil {
		return &ConfigError{StepType: "conditional", Message: "unparseable condition: " + err.Error()}
	}

	var branch *subRecipe
	if truthy {
		branch = s.cfg.IfTrue
	} else {
		branch = s.cfg.IfFalse
	}
	if branch == nil || len(branch.Steps) == 0 {
		return nil
	}

	return executor.New(s.logger).Run(ctx, &recipe.Recipe{Steps: branch.Steps}, st)
}

// evalCondition interprets the already-rendered condition string. A literal
// "true"/"false" (case-insensitive) short-circuits the mini-language parser
// entirely, per spec §4.C8 step 3.
func evalCondition(rendered string) (bool, error) {
	trimmed := strings.TrimSpace(rendered)
	switch strings.ToLower(trimmed) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	expr, err := template.ParseExpression(trimmed)
	if err != nil {
		return false, err
	}
	val, err := template.EvalWithFuncs(expr, nil, conditionFuncs())
	if err != nil {
		// An unresolved bare variable reference in condition position is
		// lenient/falsy per spec §4.C8 ("missing context values... yield
		// falsy"), not a parse failure.
		var tErr *template.Error
		if errors.As(err, &tErr) && tErr.Variable != "" {
			return false, nil
		}
		return false, err
	}
	return template.Truthy(val), nil
}
