package steps

import (
	"context"
	"testing"

	"github.com/kris-hansen/recipeforge/utils/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetContextOverwriteIsDefault(t *testing.T) {
	s, err := newSetContextStep(nil, []byte(`{"key": "k", "value": "hello-{{name}}"}`))
	require.NoError(t, err)

	st := state.New(map[string]interface{}{"name": "world", "k": "old"}, nil)
	require.NoError(t, s.Run(context.Background(), st))
	v, _ := st.Get("k")
	assert.Equal(t, "hello-world", v)
}

func TestSetContextMergeConcatenatesStrings(t *testing.T) {
	s, err := newSetContextStep(nil, []byte(`{"key": "k", "value": " world", "if_exists": "merge"}`))
	require.NoError(t, err)

	st := state.New(map[string]interface{}{"k": "hello"}, nil)
	require.NoError(t, s.Run(context.Background(), st))
	v, _ := st.Get("k")
	assert.Equal(t, "hello world", v)
}

func TestSetContextMergeAppendsLists(t *testing.T) {
	s, err := newSetContextStep(nil, []byte(`{"key": "k", "value": [3, 4], "if_exists": "merge"}`))
	require.NoError(t, err)

	st := state.New(map[string]interface{}{"k": []interface{}{1.0, 2.0}}, nil)
	require.NoError(t, s.Run(context.Background(), st))
	v, _ := st.Get("k")
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0, 4.0}, v)
}

func TestSetContextMergeShallowMergesMappings(t *testing.T) {
	s, err := newSetContextStep(nil, []byte(`{"key": "k", "value": {"b": 2}, "if_exists": "merge"}`))
	require.NoError(t, err)

	st := state.New(map[string]interface{}{"k": map[string]interface{}{"a": 1.0}}, nil)
	require.NoError(t, s.Run(context.Background(), st))
	v, _ := st.Get("k")
	assert.Equal(t, map[string]interface{}{"a": 1.0, "b": 2.0}, v)
}

func TestSetContextMergeWithNoExistingValueJustSets(t *testing.T) {
	s, err := newSetContextStep(nil, []byte(`{"key": "k", "value": "first", "if_exists": "merge"}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	require.NoError(t, s.Run(context.Background(), st))
	v, _ := st.Get("k")
	assert.Equal(t, "first", v)
}

func TestSetContextNestedRenderDoubleRendersResultString(t *testing.T) {
	s, err := newSetContextStep(nil, []byte(`{"key": "k", "value": "{{inner}}", "nested_render": true}`))
	require.NoError(t, err)

	st := state.New(map[string]interface{}{"inner": "{{name}}", "name": "final"}, nil)
	require.NoError(t, s.Run(context.Background(), st))
	v, _ := st.Get("k")
	assert.Equal(t, "final", v)
}

func TestSetContextRejectsMismatchedMergeTypes(t *testing.T) {
	s, err := newSetContextStep(nil, []byte(`{"key": "k", "value": "str", "if_exists": "merge"}`))
	require.NoError(t, err)

	st := state.New(map[string]interface{}{"k": []interface{}{1.0}}, nil)
	require.Error(t, s.Run(context.Background(), st))
}

func TestSetContextRejectsInvalidIfExists(t *testing.T) {
	_, err := newSetContextStep(nil, []byte(`{"key": "k", "value": "v", "if_exists": "bogus"}`))
	require.Error(t, err)
}

func TestSetContextRequiresKey(t *testing.T) {
	_, err := newSetContextStep(nil, []byte(`{"value": "v"}`))
	require.Error(t, err)
}
