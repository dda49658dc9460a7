package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/kris-hansen/recipeforge/utils/fileutil"
	"github.com/kris-hansen/recipeforge/utils/registry"
	"github.com/kris-hansen/recipeforge/utils/state"
)

func init() {
	registry.Register("read_files", newReadFilesStep)
}

type readFilesConfig struct {
	Path       interface{} `json:"path"`
	Optional   bool        `json:"optional"`
	MergeMode  string      `json:"merge_mode"`
	ContentKey string      `json:"content_key"`
}

type readFilesStep struct {
	logger *log.Logger
	cfg    readFilesConfig
}

func newReadFilesStep(logger *log.Logger, raw json.RawMessage) (registry.Step, error) {
	var cfg readFilesConfig
	if err := decodeConfig("read_files", raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.ContentKey == "" {
		return nil, &ConfigError{StepType: "read_files", Message: "content_key is required"}
	}
	if cfg.Path == nil {
		return nil, &ConfigError{StepType: "read_files", Message: "path is required"}
	}
	if cfg.MergeMode == "" {
		cfg.MergeMode = "concat"
	}
	if cfg.MergeMode != "concat" && cfg.MergeMode != "dict" {
		return nil, &ConfigError{StepType: "read_files", Message: fmt.Sprintf("merge_mode must be concat or dict, got %q", cfg.MergeMode)}
	}
	return &readFilesStep{logger: logger, cfg: cfg}, nil
}

// resolvePaths implements spec §4.C13's ReadFiles path acceptance: a
// single templated path, a comma-delimited templated string, or a list of
// templated paths.
func (s *readFilesStep) resolvePaths(vars map[string]interface{}) ([]string, error) {
	var raw []interface{}
	switch v := s.cfg.Path.(type) {
	case string:
		raw = []interface{}{v}
	case []interface{}:
		raw = v
	default:
		return nil, &ConfigError{StepType: "read_files", Message: fmt.Sprintf("path must be a string or list, got %T", v)}
	}

	var paths []string
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			return nil, &ConfigError{StepType: "read_files", Message: fmt.Sprintf("path entries must be strings, got %T", item)}
		}
		rendered, err := renderTemplate(str, vars)
		if err != nil {
			return nil, err
		}
		for _, part := range strings.Split(rendered, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				paths = append(paths, part)
			}
		}
	}
	return paths, nil
}

func (s *readFilesStep) Run(ctx context.Context, st *state.State) error {
	vars := st.Snapshot()
	paths, err := s.resolvePaths(vars)
	if err != nil {
		return err
	}

	var contents []string
	dict := map[string]interface{}{}

	for _, p := range paths {
		expanded, err := fileutil.ExpandPath(p)
		if err != nil {
			return fmt.Errorf("read_files: expanding path %q: %w", p, err)
		}
		data, err := os.ReadFile(expanded)
		if err != nil {
			if s.cfg.Optional && os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("read_files: reading %q: %w", expanded, err)
		}
		text := string(data)
		contents = append(contents, text)
		dict[p] = text
	}

	if s.cfg.MergeMode == "dict" {
		st.Set(s.cfg.ContentKey, dict)
		return nil
	}
	st.Set(s.cfg.ContentKey, strings.Join(contents, "\n"))
	return nil
}
