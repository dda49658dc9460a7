package steps

import (
	"context"
	"testing"

	"github.com/kris-hansen/recipeforge/utils/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellCapturesStdoutUnderOutputKey(t *testing.T) {
	s, err := newShellStep(nil, []byte(`{"command": "echo -n hello-{{name}}", "output_key": "out"}`))
	require.NoError(t, err)

	st := state.New(map[string]interface{}{"name": "world"}, nil)
	require.NoError(t, s.Run(context.Background(), st))
	v, ok := st.Get("out")
	require.True(t, ok)
	assert.Equal(t, "hello-world", v)
}

func TestShellNonZeroExitIsError(t *testing.T) {
	s, err := newShellStep(nil, []byte(`{"command": "exit 1", "output_key": "out"}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	require.Error(t, s.Run(context.Background(), st))
}

func TestShellTimeoutKillsLongRunningCommand(t *testing.T) {
	s, err := newShellStep(nil, []byte(`{"command": "sleep 5", "output_key": "out", "timeout_seconds": 1}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	err = s.Run(context.Background(), st)
	require.Error(t, err)
}

func TestShellRequiresCommandAndOutputKey(t *testing.T) {
	_, err := newShellStep(nil, []byte(`{"output_key": "out"}`))
	require.Error(t, err)

	_, err = newShellStep(nil, []byte(`{"command": "echo hi"}`))
	require.Error(t, err)
}

func TestShellDefaultsTimeoutWhenUnset(t *testing.T) {
	s, err := newShellStep(nil, []byte(`{"command": "true", "output_key": "out"}`))
	require.NoError(t, err)
	cs := s.(*shellStep)
	assert.Equal(t, 60, cs.cfg.TimeoutSeconds)
}
