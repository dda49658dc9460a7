package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsolation(t *testing.T) {
	s := New(map[string]interface{}{
		"x": "hello",
		"nested": map[string]interface{}{
			"a": []interface{}{"one", "two"},
		},
	}, nil)

	clone := s.Clone()

	s.Set("x", "mutated on original")
	clone.Set("x", "mutated on clone")

	orig, ok := s.Get("x")
	require.True(t, ok)
	assert.Equal(t, "mutated on original", orig)

	cloned, ok := clone.Get("x")
	require.True(t, ok)
	assert.Equal(t, "mutated on clone", cloned)

	origNested, _ := s.Get("nested")
	nestedMap := origNested.(map[string]interface{})
	nestedMap["a"] = []interface{}{"mutated"}

	cloneNested, _ := clone.Get("nested")
	cloneNestedMap := cloneNested.(map[string]interface{})
	assert.Equal(t, []interface{}{"one", "two"}, cloneNestedMap["a"])
}

func TestConstructorDeepCopiesInput(t *testing.T) {
	input := map[string]interface{}{"k": "v"}
	s := New(input, nil)
	input["k"] = "mutated by caller"

	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestSetGetDeleteContains(t *testing.T) {
	s := New(nil, nil)
	assert.False(t, s.Contains("x"))

	s.Set("x", 42)
	assert.True(t, s.Contains("x"))
	v, ok := s.Get("x")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	s.Delete("x")
	assert.False(t, s.Contains("x"))
}

func TestConfigNamespaceIsSeparate(t *testing.T) {
	s := New(nil, map[string]interface{}{"default_model": "openai/gpt-4o"})
	assert.False(t, s.Contains("default_model"))

	v, ok := s.ConfigGet("default_model")
	require.True(t, ok)
	assert.Equal(t, "openai/gpt-4o", v)
}

func TestMergeFromOverwritesSharedState(t *testing.T) {
	s := New(map[string]interface{}{"name": "Alice"}, nil)
	s.MergeFrom(map[string]interface{}{"greeting": "Hello Alice!"})

	v, ok := s.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "Hello Alice!", v)
}

func TestToJSONCoercesUnserializable(t *testing.T) {
	s := New(map[string]interface{}{"ch": make(chan int)}, nil)
	b, err := s.ToJSON(false)
	require.NoError(t, err)
	assert.Contains(t, string(b), "ch")

	_, err = s.ToJSON(true)
	assert.Error(t, err)
}
