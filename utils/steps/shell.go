package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"time"

	"github.com/kris-hansen/recipeforge/utils/registry"
	"github.com/kris-hansen/recipeforge/utils/state"
)

func init() {
	registry.Register("shell", newShellStep)
}

type shellConfig struct {
	Command        string `json:"command"`
	OutputKey      string `json:"output_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type shellStep struct {
	logger *log.Logger
	cfg    shellConfig
}

func newShellStep(logger *log.Logger, raw json.RawMessage) (registry.Step, error) {
	var cfg shellConfig
	if err := decodeConfig("shell", raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Command == "" {
		return nil, &ConfigError{StepType: "shell", Message: "command is required"}
	}
	if cfg.OutputKey == "" {
		return nil, &ConfigError{StepType: "shell", Message: "output_key is required"}
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 60
	}
	return &shellStep{logger: logger, cfg: cfg}, nil
}

// Run renders `command` and runs it via `sh -c`, the way the teacher's
// ToolExecutor.Execute does: a done-channel carries the *exec.Cmd's result
// so a select alongside time.After can enforce a timeout and kill the
// process if it overruns. The command is also bound to ctx through
// exec.CommandContext.
func (s *shellStep) Run(ctx context.Context, st *state.State) error {
	rendered, err := renderTemplate(s.cfg.Command, st.Snapshot())
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", rendered)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	done := make(chan error, 1)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("shell: starting command: %w", err)
	}
	go func() { done <- cmd.Wait() }()

	timeout := time.Duration(s.cfg.TimeoutSeconds) * time.Second
	select {
	case runErr := <-done:
		if runErr != nil {
			return fmt.Errorf("shell: command failed: %w (stderr: %s)", runErr, stderrBuf.String())
		}
		st.Set(s.cfg.OutputKey, stdoutBuf.String())
		return nil
	case <-time.After(timeout):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return fmt.Errorf("shell: command timed out after %d seconds", s.cfg.TimeoutSeconds)
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return ctx.Err()
	}
}
