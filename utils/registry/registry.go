// Package registry holds the process-global step-type → constructor map
// (spec §4.C3). It is populated once, by each step package's init(), and
// looked up once per step by the Executor. Lookup itself takes no lock:
// registration always completes (via package init order) before any
// Executor runs, so reads are safe without synchronization.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/kris-hansen/recipeforge/utils/state"
)

// Step is the common lifecycle every concrete step type implements (spec
// §4.C4): construction validates and types the configuration; Run performs
// the step's effect against state. Steps may suspend on ctx cancellation at
// their own suspension points (network/file I/O, sub-step awaits); they do
// not poll ctx themselves beyond passing it through.
type Step interface {
	Run(ctx context.Context, st *state.State) error
}

// Constructor builds a step instance from its raw JSON config. logger
// mirrors the teacher's `(logger, config_mapping)` convention from spec
// §4.C3.
type Constructor func(logger *log.Logger, config json.RawMessage) (Step, error)

var constructors = map[string]Constructor{}

// Register adds a step-type constructor. Called from each step package's
// init(); a duplicate registration is a programming error and panics
// immediately rather than silently shadowing the earlier entry.
func Register(stepType string, ctor Constructor) {
	if _, exists := constructors[stepType]; exists {
		panic(fmt.Sprintf("registry: step type %q already registered", stepType))
	}
	constructors[stepType] = ctor
}

// Lookup returns the constructor for stepType, or false if none was
// registered. Callers (the Executor) turn a miss into an UnknownStepType
// error carrying the step index, which this package does not know about.
func Lookup(stepType string) (Constructor, bool) {
	ctor, ok := constructors[stepType]
	return ctor, ok
}

// Registered lists every currently-registered step type, for diagnostics.
func Registered() []string {
	out := make([]string, 0, len(constructors))
	for t := range constructors {
		out = append(out, t)
	}
	return out
}
