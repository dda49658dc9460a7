package steps

import (
	"context"
	"encoding/json"
	"log"

	"github.com/kris-hansen/recipeforge/utils/mcpclient"
	"github.com/kris-hansen/recipeforge/utils/registry"
	"github.com/kris-hansen/recipeforge/utils/state"
)

func init() {
	registry.Register("mcp_call", newMCPCallStep)
}

type mcpCallConfig struct {
	Server    json.RawMessage        `json:"server"`
	ServerKey string                 `json:"server_name"`
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments"`
	ResultKey string                 `json:"result_key"`
}

type mcpCallStep struct {
	logger *log.Logger
	cfg    mcpCallConfig
}

func newMCPCallStep(logger *log.Logger, raw json.RawMessage) (registry.Step, error) {
	var cfg mcpCallConfig
	if err := decodeConfig("mcp_call", raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Tool == "" {
		return nil, &ConfigError{StepType: "mcp_call", Message: "tool is required"}
	}
	if cfg.ResultKey == "" {
		return nil, &ConfigError{StepType: "mcp_call", Message: "result_key is required"}
	}
	if len(cfg.Server) == 0 {
		return nil, &ConfigError{StepType: "mcp_call", Message: "server is required"}
	}
	if cfg.ServerKey == "" {
		cfg.ServerKey = cfg.Tool
	}
	return &mcpCallStep{logger: logger, cfg: cfg}, nil
}

// Run invokes a single named tool on a single configured MCP server (spec
// §4.C13 "MCP tool-call"), a thin wrapper over the §4.C7 handle factory:
// this step owns its connection for the duration of the call, per the
// engine's "created per-step or short-lived per-call" resource policy.
func (s *mcpCallStep) Run(ctx context.Context, st *state.State) error {
	vars := st.Snapshot()

	tool, err := renderTemplate(s.cfg.Tool, vars)
	if err != nil {
		return err
	}

	args, err := renderArgs(s.cfg.Arguments, vars)
	if err != nil {
		return err
	}

	serverCfg, err := resolveMCPServerConfig(s.cfg.Server, vars)
	if err != nil {
		return &ConfigError{StepType: "mcp_call", Message: err.Error()}
	}
	if !serverCfg.IsHTTP() && serverCfg.Command == "" {
		return &ConfigError{StepType: "mcp_call", Message: "server must specify url or command"}
	}

	handle, err := mcpclient.New(ctx, s.cfg.ServerKey, serverCfg)
	if err != nil {
		return err
	}
	defer handle.Close()

	result, err := handle.CallTool(ctx, tool, args)
	if err != nil {
		return err
	}

	st.Set(s.cfg.ResultKey, result)
	return nil
}

func renderArgs(args map[string]interface{}, vars map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		rendered, err := renderDeep(v, vars)
		if err != nil {
			return nil, err
		}
		out[k] = rendered
	}
	return out, nil
}
