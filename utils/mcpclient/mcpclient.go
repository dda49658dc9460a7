// Package mcpclient builds MCP Server Handles (spec §4.C7) from configs and
// provides the tool-invocation primitive the mcp_call step uses. It wraps github.com/mark3labs/mcp-go, the only MCP client
// library that appears in the retrieval pack (GoCodeAlone-workflow uses its
// server half; this engine is a client of remote tool servers).
package mcpclient

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"
)

// Config is one MCP server config entry, discriminated by the presence of
// URL (HTTP transport) vs Command (stdio transport), per spec §3. Carries
// both json and yaml tags: recipes embed it as inline JSON, but a
// `@file:`-referenced server config fragment is loaded through
// LoadMCPServerConfigFile, which accepts either JSON or YAML (spec §6
// supplement).
type Config struct {
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Cwd     string            `json:"cwd,omitempty" yaml:"cwd,omitempty"`
}

// LoadMCPServerConfigFile loads a standalone MCP server config fragment
// from disk, accepting either JSON or YAML — these files are frequently
// hand-edited, and yaml.v3 decodes JSON-shaped content as a matter of
// course (spec §6 supplement: recipes may reference a server config via
// "@file:path" instead of inlining it).
func LoadMCPServerConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("mcpclient: reading server config file %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("mcpclient: parsing server config file %q: %w", path, err)
	}
	if !cfg.IsHTTP() && cfg.Command == "" {
		return Config{}, fmt.Errorf("mcpclient: server config file %q has neither url nor command", path)
	}
	return cfg, nil
}

// IsHTTP reports whether this config describes the HTTP transport.
func (c Config) IsHTTP() bool { return c.URL != "" }

// Handle is an opaque handle to a configured MCP server. The rest of the
// engine never reaches into it; it is passed back into CallTool, or carried
// in llm.GenerateOptions, where none of the llm providers reads it.
type Handle struct {
	name   string
	config Config
	client *client.Client
}

// MCPError wraps a handle-construction or tool-invocation failure, per spec
// §7 (kind: MCPError).
type MCPError struct {
	Server string
	Cause  error
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("mcp server %q: %v", e.Server, e.Cause)
}

func (e *MCPError) Unwrap() error { return e.Cause }

// New builds a Handle from cfg, resolving stdio env values against the host
// environment (empty string ⇒ look up the host var; still unresolved ⇒
// omit), per spec §4.C7. The underlying transport is started and
// initialized here, before New returns.
func New(ctx context.Context, name string, cfg Config) (*Handle, error) {
	if cfg.IsHTTP() {
		c, err := client.NewStreamableHttpClient(cfg.URL, withHeaders(cfg.Headers))
		if err != nil {
			return nil, &MCPError{Server: name, Cause: err}
		}
		if err := initClient(ctx, c, name); err != nil {
			return nil, err
		}
		return &Handle{name: name, config: cfg, client: c}, nil
	}

	if cfg.Command == "" {
		return nil, &MCPError{Server: name, Cause: fmt.Errorf("config has neither url nor command")}
	}

	env := resolveEnv(cfg.Env)
	c, err := client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
	if err != nil {
		return nil, &MCPError{Server: name, Cause: err}
	}
	if err := initClient(ctx, c, name); err != nil {
		return nil, err
	}
	return &Handle{name: name, config: cfg, client: c}, nil
}

func initClient(ctx context.Context, c *client.Client, name string) error {
	if err := c.Start(ctx); err != nil {
		return &MCPError{Server: name, Cause: err}
	}
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "recipeforge", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return &MCPError{Server: name, Cause: err}
	}
	return nil
}

// withHeaders adapts a plain header map into the streamable-HTTP client's
// transport option.
func withHeaders(headers map[string]string) client.ClientOption {
	return client.WithHeaders(headers)
}

// resolveEnv converts a config env map into a "KEY=VALUE" slice, resolving
// empty-string values from the host environment and dropping still-empty
// entries rather than passing an empty credential through.
func resolveEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		if v == "" {
			if hostVal, ok := os.LookupEnv(k); ok && hostVal != "" {
				v = hostVal
			} else {
				continue
			}
		}
		out = append(out, k+"="+v)
	}
	return out
}

// Name returns the handle's configured server name (for logging).
func (h *Handle) Name() string { return h.name }

// Client exposes the underlying mcp-go client. No package in this module
// calls it; the llm providers do not drive MCP servers themselves.
func (h *Handle) Client() *client.Client { return h.client }

// CallTool invokes a named tool on this server with the given arguments and
// returns its text content, used by the mcp_call step.
func (h *Handle) CallTool(ctx context.Context, toolName string, args map[string]interface{}) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	res, err := h.client.CallTool(ctx, req)
	if err != nil {
		return "", &MCPError{Server: h.name, Cause: err}
	}
	if res.IsError {
		return "", &MCPError{Server: h.name, Cause: fmt.Errorf("tool %q returned an error result: %s", toolName, contentText(res.Content))}
	}
	return contentText(res.Content), nil
}

// Close releases the underlying transport (process or HTTP connection).
func (h *Handle) Close() error {
	return h.client.Close()
}

func contentText(content []mcp.Content) string {
	var sb strings.Builder
	for _, c := range content {
		if tc, ok := c.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
