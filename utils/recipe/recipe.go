// Package recipe defines the on-disk and in-memory shape of a recipe: an
// ordered list of typed steps plus optional metadata, and the loader that
// accepts a recipe in any of its three external representations (path,
// literal JSON text, already-parsed object).
package recipe

import (
	"encoding/json"
	"fmt"
	"os"
)

// Step is a single tagged entry in a Recipe: a type tag plus a step-specific
// configuration object. Config is kept as raw JSON so the registry's
// constructor for `Type` can unmarshal it into whatever shape it expects,
// without the loader needing to know every step schema up front.
type Step struct {
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config"`
}

// Inputs documents the named inputs a recipe expects; it is metadata only —
// the engine does not enforce it.
type Inputs map[string]interface{}

// Recipe is an ordered sequence of steps plus optional descriptive metadata.
type Recipe struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Inputs      Inputs `json:"inputs,omitempty"`
	Steps       []Step `json:"steps"`
}

// rawRecipe mirrors Recipe's JSON shape for decoding, tolerating an absent
// or null `config` on a step (treated as an empty object) and unknown keys
// at both levels.
type rawRecipe struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Inputs      Inputs          `json:"inputs"`
	Steps       []rawStep       `json:"steps"`
}

type rawStep struct {
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config"`
}

// Load accepts a recipe in any of its three external representations:
//   - an already-parsed *Recipe or map[string]interface{}/[]byte/string that
//     decodes as recipe JSON,
//   - a string that names an existing regular file (read & JSON-decoded),
//   - a string that is itself literal JSON.
//
// This mirrors the Executor's load step (spec §4.C5): object first, then
// file path, then literal JSON text.
func Load(input interface{}) (*Recipe, error) {
	switch v := input.(type) {
	case *Recipe:
		return v, nil
	case Recipe:
		return &v, nil
	case []byte:
		return decodeJSON(v)
	case string:
		if info, err := os.Stat(v); err == nil && info.Mode().IsRegular() {
			data, err := os.ReadFile(v)
			if err != nil {
				return nil, fmt.Errorf("recipe: reading %q: %w", v, err)
			}
			return decodeJSON(data)
		}
		return decodeJSON([]byte(v))
	case map[string]interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("recipe: re-encoding parsed object: %w", err)
		}
		return decodeJSON(data)
	default:
		return nil, fmt.Errorf("recipe: unsupported input type %T", input)
	}
}

func decodeJSON(data []byte) (*Recipe, error) {
	var raw rawRecipe
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("recipe: invalid JSON: %w", err)
	}
	if raw.Steps == nil {
		return nil, fmt.Errorf("recipe: missing required top-level \"steps\" list")
	}

	steps := make([]Step, len(raw.Steps))
	for i, rs := range raw.Steps {
		if rs.Type == "" {
			return nil, fmt.Errorf("recipe: step %d missing required \"type\"", i)
		}
		cfg := rs.Config
		if len(cfg) == 0 || string(cfg) == "null" {
			cfg = json.RawMessage("{}")
		}
		steps[i] = Step{Type: rs.Type, Config: cfg}
	}

	return &Recipe{
		Name:        raw.Name,
		Description: raw.Description,
		Inputs:      raw.Inputs,
		Steps:       steps,
	}, nil
}
