package steps

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kris-hansen/recipeforge/utils/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocpackCreateThenExtractRoundTrips(t *testing.T) {
	dir := t.TempDir()
	resA := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(resA, []byte("resource A"), 0644))

	archivePath := filepath.Join(dir, "out.docpack")
	create, err := newDocpackCreateStep(nil, []byte(`{
		"outline": {"title": "demo-{{name}}"},
		"resources": {"a": "`+resA+`"},
		"output_path": "`+archivePath+`"
	}`))
	require.NoError(t, err)

	st := state.New(map[string]interface{}{"name": "x"}, nil)
	require.NoError(t, create.Run(context.Background(), st))

	_, err = os.Stat(archivePath)
	require.NoError(t, err)

	extractDir := filepath.Join(dir, "extracted")
	extract, err := newDocpackExtractStep(nil, []byte(`{
		"archive_path": "`+archivePath+`",
		"output_dir": "`+extractDir+`",
		"outline_key": "outline"
	}`))
	require.NoError(t, err)

	st2 := state.New(nil, nil)
	require.NoError(t, extract.Run(context.Background(), st2))

	outline, ok := st2.Get("outline")
	require.True(t, ok)
	m, ok := outline.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "demo-x", m["title"])

	data, err := os.ReadFile(filepath.Join(extractDir, "resources", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "resource A", string(data))
}

func TestDocpackCreateResolvesResourceNameConflictsWithNumericSuffix(t *testing.T) {
	dir := t.TempDir()
	subA := filepath.Join(dir, "sub-a")
	subB := filepath.Join(dir, "sub-b")
	require.NoError(t, os.MkdirAll(subA, 0755))
	require.NoError(t, os.MkdirAll(subB, 0755))
	fileA := filepath.Join(subA, "shared.txt")
	fileB := filepath.Join(subB, "shared.txt")
	require.NoError(t, os.WriteFile(fileA, []byte("first"), 0644))
	require.NoError(t, os.WriteFile(fileB, []byte("second"), 0644))

	archivePath := filepath.Join(dir, "out.docpack")
	create, err := newDocpackCreateStep(nil, []byte(`{
		"outline": {},
		"resources": {"one": "`+fileA+`", "two": "`+fileB+`"},
		"output_path": "`+archivePath+`"
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	require.NoError(t, create.Run(context.Background(), st))

	zr, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer zr.Close()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["resources/shared.txt"])
	assert.True(t, names["resources/shared-1.txt"])
}

func TestDocpackCreateRequiresOutputPath(t *testing.T) {
	_, err := newDocpackCreateStep(nil, []byte(`{"outline": {}}`))
	require.Error(t, err)
}

func TestDocpackExtractRequiresArchiveAndOutputDir(t *testing.T) {
	_, err := newDocpackExtractStep(nil, []byte(`{"output_dir": "/tmp/x"}`))
	require.Error(t, err)

	_, err = newDocpackExtractStep(nil, []byte(`{"archive_path": "/tmp/x.docpack"}`))
	require.Error(t, err)
}

func TestDocpackExtractWithoutOutlineKeySkipsOutline(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "out.docpack")
	create, err := newDocpackCreateStep(nil, []byte(`{
		"outline": {"a": 1},
		"output_path": "`+archivePath+`"
	}`))
	require.NoError(t, err)
	st := state.New(nil, nil)
	require.NoError(t, create.Run(context.Background(), st))

	extract, err := newDocpackExtractStep(nil, []byte(`{
		"archive_path": "`+archivePath+`",
		"output_dir": "`+filepath.Join(dir, "out")+`"
	}`))
	require.NoError(t, err)
	st2 := state.New(nil, nil)
	require.NoError(t, extract.Run(context.Background(), st2))
	assert.False(t, st2.Contains("outline"))
}
