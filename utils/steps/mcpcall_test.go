package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kris-hansen/recipeforge/utils/mcpclient"
	"github.com/kris-hansen/recipeforge/utils/state"
	"github.com/stretchr/testify/require"
)

func TestMCPCallRequiresToolAndResultKey(t *testing.T) {
	_, err := newMCPCallStep(nil, []byte(`{"result_key": "out", "server": {"command": "true"}}`))
	require.Error(t, err)

	_, err = newMCPCallStep(nil, []byte(`{"tool": "echo", "server": {"command": "true"}}`))
	require.Error(t, err)
}

func TestMCPCallRequiresURLOrCommand(t *testing.T) {
	s, err := newMCPCallStep(nil, []byte(`{"tool": "echo", "result_key": "out", "server": {}}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	err = s.Run(context.Background(), st)
	require.Error(t, err)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestMCPCallRequiresServerField(t *testing.T) {
	_, err := newMCPCallStep(nil, []byte(`{"tool": "echo", "result_key": "out"}`))
	require.Error(t, err)
}

func TestMCPCallServerNameDefaultsToTool(t *testing.T) {
	s, err := newMCPCallStep(nil, []byte(`{"tool": "echo", "result_key": "out", "server": {"command": "true"}}`))
	require.NoError(t, err)
	cs := s.(*mcpCallStep)
	require.Equal(t, "echo", cs.cfg.ServerKey)
}

// A stdio server that doesn't speak the MCP handshake protocol fails the
// connection quickly rather than hanging, surfacing an *mcpclient.MCPError.
func TestMCPCallFailsCleanlyAgainstNonMCPServer(t *testing.T) {
	s, err := newMCPCallStep(nil, []byte(`{
		"tool": "echo",
		"result_key": "out",
		"server": {"command": "false"}
	}`))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st := state.New(nil, nil)
	err = s.Run(ctx, st)
	require.Error(t, err)
	var me *mcpclient.MCPError
	require.ErrorAs(t, err, &me)
}

// server config can name an external YAML/JSON fragment via "@file:path"
// instead of inlining the object (spec §6 supplement); this one names a
// stdio command (`false`) that exits at once, so the handshake fails fast
// once resolved.
func TestMCPCallResolvesServerFromFileReference(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("command: false\n"), 0644))

	s, err := newMCPCallStep(nil, []byte(`{
		"tool": "echo",
		"result_key": "out",
		"server": "@file:`+cfgPath+`"
	}`))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st := state.New(nil, nil)
	err = s.Run(ctx, st)
	require.Error(t, err)
	var me *mcpclient.MCPError
	require.ErrorAs(t, err, &me)
}
