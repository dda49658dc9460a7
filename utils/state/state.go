// Package state implements the engine's shared mutable state container: a
// process-scoped artifacts store plus a separate, read-mostly config store,
// with deep clone/snapshot/serialize operations (spec §3, §4.C2).
package state

import (
	"encoding/json"
	"fmt"
	"sync"
)

// State is the shared container steps read from and write to. Each
// operation holds an internal RWMutex, so single calls are safe from
// several goroutines; isolation between concurrent branches (Loop/Parallel)
// comes from giving each branch its own Clone().
type State struct {
	mu        sync.RWMutex
	artifacts map[string]interface{}
	config    map[string]interface{}
}

// New constructs a State, deep-copying the supplied initial artifacts and
// config so the caller retains no back-channel into the engine's state.
func New(initialArtifacts, initialConfig map[string]interface{}) *State {
	s := &State{
		artifacts: make(map[string]interface{}),
		config:    make(map[string]interface{}),
	}
	for k, v := range initialArtifacts {
		s.artifacts[k] = deepCopy(v)
	}
	for k, v := range initialConfig {
		s.config[k] = deepCopy(v)
	}
	return s
}

// Get returns the artifact at key and whether it was present.
func (s *State) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.artifacts[key]
	return v, ok
}

// Set stores value under key in the artifacts namespace.
func (s *State) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[key] = value
}

// Delete removes key from the artifacts namespace.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, key)
}

// Contains reports whether key exists in the artifacts namespace.
func (s *State) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.artifacts[key]
	return ok
}

// ConfigGet returns the config value at key and whether it was present.
func (s *State) ConfigGet(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.config[key]
	return v, ok
}

// ConfigSet stores value under key in the config namespace.
func (s *State) ConfigSet(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config[key] = value
}

// Keys returns the current artifact keys. Iteration order is not
// semantically meaningful, so callers must not depend on it.
func (s *State) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.artifacts))
	for k := range s.artifacts {
		keys = append(keys, k)
	}
	return keys
}

// Snapshot returns a deep copy of the artifacts namespace as a plain map,
// suitable for handing to the template renderer.
func (s *State) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]interface{}, len(s.artifacts))
	for k, v := range s.artifacts {
		out[k] = deepCopy(v)
	}
	return out
}

// ConfigSnapshot returns a deep copy of the config namespace.
func (s *State) ConfigSnapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]interface{}, len(s.config))
	for k, v := range s.config {
		out[k] = deepCopy(v)
	}
	return out
}

// Clone produces an independent deep copy: subsequent mutations on either
// side are invisible to the other. Used per Loop iteration and per Parallel
// branch; ExecuteRecipe merges its overrides into the shared state instead.
func (s *State) Clone() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &State{
		artifacts: make(map[string]interface{}, len(s.artifacts)),
		config:    make(map[string]interface{}, len(s.config)),
	}
	for k, v := range s.artifacts {
		clone.artifacts[k] = deepCopy(v)
	}
	for k, v := range s.config {
		clone.config[k] = deepCopy(v)
	}
	return clone
}

// MergeFrom overwrites keys in s's artifacts namespace with those from
// overrides, used by ExecuteRecipe to apply context overrides onto the
// shared parent state (no cloning: mutations remain visible to later steps).
func (s *State) MergeFrom(overrides map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range overrides {
		s.artifacts[k] = v
	}
}

// ToJSON serializes the artifacts namespace to JSON. Values that cannot be
// JSON-encoded are coerced to their fmt.Sprintf("%v", ...) string form by
// default; pass strict=true to instead return the first encoding error.
func (s *State) ToJSON(strict bool) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	safe := make(map[string]interface{}, len(s.artifacts))
	for k, v := range s.artifacts {
		if _, err := json.Marshal(v); err != nil {
			if strict {
				return nil, fmt.Errorf("state: key %q is not JSON-serializable: %w", k, err)
			}
			safe[k] = fmt.Sprintf("%v", v)
			continue
		}
		safe[k] = v
	}
	return json.Marshal(safe)
}

// Cloneable lets an opaque artifact type (e.g. a step's result struct)
// supply its own deep copy instead of relying on the JSON-roundtrip
// fallback below.
type Cloneable interface {
	CloneValue() interface{}
}

// deepCopy deep-copies the JSON-like value shapes the engine deals in:
// map[string]interface{}, []interface{}, and scalars. Opaque objects that
// implement Cloneable are copied via CloneValue(); everything else opaque
// is round-tripped through encoding/json on a best-effort basis (a decoded
// FileSpec slice, for instance, comes back as []interface{}/map shapes,
// which is fine — callers only ever read these through the same
// map/slice/scalar contract). Values that can't even round-trip through
// JSON are returned as-is and treated as immutable once produced.
func deepCopy(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, string, bool, int, int64, float64, json.Number:
		return val
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, vv := range val {
			out[k] = deepCopy(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, vv := range val {
			out[i] = deepCopy(vv)
		}
		return out
	case Cloneable:
		return val.CloneValue()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return v
		}
		var generic interface{}
		if err := json.Unmarshal(b, &generic); err != nil {
			return v
		}
		return generic
	}
}
