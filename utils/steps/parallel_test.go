package steps

import (
	"context"
	"testing"

	"github.com/kris-hansen/recipeforge/utils/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelRunsEachSubstepOnceAgainstItsOwnClone(t *testing.T) {
	s, err := newParallelStep(nil, []byte(`{
		"substeps": [
			{"type": "test_record", "config": {"key": "a", "value": "1"}},
			{"type": "test_record", "config": {"key": "b", "value": "2"}}
		],
		"max_concurrency": 2
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	require.NoError(t, s.Run(context.Background(), st))

	// Mutations from each substep's own clone never propagate to the
	// parent state: fan-out-for-side-effects, not fan-out-for-results.
	assert.False(t, st.Contains("a"))
	assert.False(t, st.Contains("b"))
}

func TestParallelFailFastTruePropagatesSubstepError(t *testing.T) {
	s, err := newParallelStep(nil, []byte(`{
		"substeps": [
			{"type": "test_record", "config": {"fail": true}},
			{"type": "test_record", "config": {"key": "b", "value": "2"}}
		],
		"max_concurrency": 2
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	err = s.Run(context.Background(), st)
	require.Error(t, err)
	var be *ParallelSubstepError
	require.ErrorAs(t, err, &be)
}

func TestParallelFailFastFalseWaitsForAllAndReturnsAnError(t *testing.T) {
	s, err := newParallelStep(nil, []byte(`{
		"substeps": [
			{"type": "test_record", "config": {"fail": true}},
			{"type": "test_record", "config": {"key": "b", "value": "2"}}
		],
		"max_concurrency": 1,
		"fail_fast": false
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	err = s.Run(context.Background(), st)
	require.Error(t, err)
}

func TestParallelRejectsEmptySubsteps(t *testing.T) {
	_, err := newParallelStep(nil, []byte(`{"substeps": []}`))
	require.Error(t, err)
}
