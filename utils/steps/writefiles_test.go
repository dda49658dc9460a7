package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kris-hansen/recipeforge/utils/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFilesWritesLiteralFilesUnderRoot(t *testing.T) {
	dir := t.TempDir()
	s, err := newWriteFilesStep(nil, []byte(`{
		"files": [{"path": "sub/out.txt", "content": "hi"}],
		"root": "`+dir+`"
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	require.NoError(t, s.Run(context.Background(), st))

	data, err := os.ReadFile(filepath.Join(dir, "sub", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestWriteFilesResolvesFilesKeyFromState(t *testing.T) {
	dir := t.TempDir()
	s, err := newWriteFilesStep(nil, []byte(`{
		"files_key": "generated",
		"root": "`+dir+`"
	}`))
	require.NoError(t, err)

	st := state.New(map[string]interface{}{
		"generated": []interface{}{
			map[string]interface{}{"path": "a.txt", "content": "A"},
			map[string]interface{}{"path": "b.txt", "content": "B"},
		},
	}, nil)
	require.NoError(t, s.Run(context.Background(), st))

	a, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "A", string(a))
	b, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "B", string(b))
}

func TestWriteFilesRejectsMissingFilesAndFilesKey(t *testing.T) {
	_, err := newWriteFilesStep(nil, []byte(`{"root": "/tmp"}`))
	require.Error(t, err)
}

func TestWriteFilesErrorsWhenFilesKeyNotInState(t *testing.T) {
	s, err := newWriteFilesStep(nil, []byte(`{"files_key": "nope"}`))
	require.NoError(t, err)
	st := state.New(nil, nil)
	require.Error(t, s.Run(context.Background(), st))
}
