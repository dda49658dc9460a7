// Package executor implements the Executor (spec §4.C5): it loads a recipe
// in any of its three external representations, validates its shape, and
// drives its steps sequentially against a state.State, wrapping any failure
// with the step index and type that produced it.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/kris-hansen/recipeforge/utils/recipe"
	"github.com/kris-hansen/recipeforge/utils/registry"
	"github.com/kris-hansen/recipeforge/utils/state"
)

// UnknownStepType is raised when a step's type tag has no registered
// constructor.
type UnknownStepType struct {
	Index int
	Type  string
}

func (e *UnknownStepType) Error() string {
	return fmt.Sprintf("recipe step %d: unknown step type %q", e.Index, e.Type)
}

// StepFailure wraps any error raised while constructing or running a step,
// always carrying the step's index and type (spec §7).
type StepFailure struct {
	Index int
	Type  string
	Cause error
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("recipe step %d (%s): %v", e.Index, e.Type, e.Cause)
}

func (e *StepFailure) Unwrap() error { return e.Cause }

// Executor drives a recipe's steps against a state. It holds no state
// between calls to Execute: two concurrent Execute calls on different state
// objects are independent (spec §4.C5, "Statelessness").
type Executor struct {
	Logger *log.Logger
}

// New constructs an Executor. A nil logger falls back to log.Default().
func New(logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{Logger: logger}
}

// Execute loads input (path / literal JSON / already-parsed object) and
// runs its steps in order against st. Each top-level call is tagged with a
// fresh run ID for log correlation; Run itself carries no ID, so a
// sub-recipe invoked via execute_recipe logs under its parent's run.
func (x *Executor) Execute(ctx context.Context, input interface{}, st *state.State) error {
	r, err := recipe.Load(input)
	if err != nil {
		return err
	}
	runID := uuid.New().String()
	x.Logger.Printf("[debug] executor: run %s loaded recipe %q with %d step(s)", runID, r.Name, len(r.Steps))
	if err := x.Run(ctx, r, st); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	x.Logger.Printf("[debug] executor: run %s completed", runID)
	return nil
}

// Run executes an already-loaded recipe's steps in order against st.
func (x *Executor) Run(ctx context.Context, r *recipe.Recipe, st *state.State) error {
	for i, s := range r.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		ctor, ok := registry.Lookup(s.Type)
		if !ok {
			return &UnknownStepType{Index: i, Type: s.Type}
		}

		x.Logger.Printf("[debug] executor: step %d type=%s config=%s", i, s.Type, summarizeConfig(s.Config))

		step, err := ctor(x.Logger, s.Config)
		if err != nil {
			return &StepFailure{Index: i, Type: s.Type, Cause: err}
		}
		if err := step.Run(ctx, st); err != nil {
			return &StepFailure{Index: i, Type: s.Type, Cause: err}
		}
	}
	return nil
}

// summarizeConfig renders a short, single-line preview of a step's config
// for debug logging, never the full payload (which may contain prompts or
// large inline content).
func summarizeConfig(raw json.RawMessage) string {
	const maxLen = 120
	s := string(raw)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
