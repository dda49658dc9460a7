package steps

import (
	"context"
	"testing"

	"github.com/kris-hansen/recipeforge/utils/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopOverLiteralListOrdersResultsByInputPosition(t *testing.T) {
	s, err := newLoopStep(nil, []byte(`{
		"items": ["a", "b", "c"],
		"item_key": "item",
		"result_key": "out",
		"max_concurrency": 3,
		"substeps": [{"type": "test_record", "config": {"key": "item", "value": "X"}}]
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	require.NoError(t, s.Run(context.Background(), st))

	v, ok := st.Get("out")
	require.True(t, ok)
	results, ok := v.([]interface{})
	require.True(t, ok)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, "X", r)
	}
}

func TestLoopOverStatePathResolvesItemsFromDottedPath(t *testing.T) {
	s, err := newLoopStep(nil, []byte(`{
		"items": "source",
		"item_key": "item",
		"result_key": "out",
		"substeps": [{"type": "test_record", "config": {"key": "item", "value": "done"}}]
	}`))
	require.NoError(t, err)

	st := state.New(map[string]interface{}{
		"source": []interface{}{"p", "q"},
	}, nil)
	require.NoError(t, s.Run(context.Background(), st))

	v, ok := st.Get("out")
	require.True(t, ok)
	assert.Len(t, v.([]interface{}), 2)
}

func TestLoopEmptyCollectionProducesEmptyResultNotError(t *testing.T) {
	s, err := newLoopStep(nil, []byte(`{
		"items": [],
		"item_key": "item",
		"result_key": "out",
		"substeps": [{"type": "test_record", "config": {"key": "item", "value": "X"}}]
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	require.NoError(t, s.Run(context.Background(), st))

	v, ok := st.Get("out")
	require.True(t, ok)
	assert.Empty(t, v.([]interface{}))
}

func TestLoopFailFastTrueCancelsAndPropagatesFirstError(t *testing.T) {
	s, err := newLoopStep(nil, []byte(`{
		"items": ["a", "b"],
		"item_key": "item",
		"result_key": "out",
		"max_concurrency": 1,
		"substeps": [{"type": "test_record", "config": {"fail": true}}]
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	err = s.Run(context.Background(), st)
	require.Error(t, err)
	var itemErr *LoopItemError
	require.ErrorAs(t, err, &itemErr)
	assert.False(t, st.Contains("out"))
}

func TestLoopFailFastFalseAccumulatesErrorsAndKeepsGoodResults(t *testing.T) {
	s, err := newLoopStep(nil, []byte(`{
		"items": ["ok", "bad"],
		"item_key": "item",
		"result_key": "out",
		"max_concurrency": 1,
		"fail_fast": false,
		"substeps": [{"type": "conditional", "config": {
			"condition": "'{{item}}' == 'bad'",
			"if_true": {"steps": [{"type": "test_record", "config": {"fail": true}}]}
		}}]
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	require.NoError(t, s.Run(context.Background(), st))

	v, ok := st.Get("out")
	require.True(t, ok)
	results, ok := v.([]interface{})
	require.True(t, ok, "expected result_key to stay a length-n list even when an item fails")
	require.Len(t, results, 2)
	assert.Equal(t, "ok", results[0])
	marker, ok := results[1].(map[string]interface{})
	require.True(t, ok, "expected a diagnostic marker in the failed item's slot")
	assert.EqualValues(t, 1, marker["index_or_key"])

	errsVal, ok := st.Get("__errors")
	require.True(t, ok)
	errs, ok := errsVal.([]interface{})
	require.True(t, ok)
	require.Len(t, errs, 1)
}

func TestLoopOverMappingExposesKeyAndProducesPositionalResults(t *testing.T) {
	s, err := newLoopStep(nil, []byte(`{
		"items": {"x": 1, "y": 2},
		"item_key": "item",
		"result_key": "out",
		"substeps": [{"type": "test_record", "config": {"key": "item", "value": "seen"}}]
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	require.NoError(t, s.Run(context.Background(), st))
	v, ok := st.Get("out")
	require.True(t, ok)
	assert.Len(t, v.([]interface{}), 2)
}

func TestLoopMissingItemsPathIsConstructionOrRunError(t *testing.T) {
	s, err := newLoopStep(nil, []byte(`{
		"items": "{{nope}}",
		"item_key": "item",
		"result_key": "out",
		"substeps": []
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	err = s.Run(context.Background(), st)
	require.Error(t, err)
}
